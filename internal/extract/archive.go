package extract

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/nao1215/sitespider/internal/archive"
	spiderlog "github.com/nao1215/sitespider/internal/log"
	"github.com/nao1215/sitespider/internal/model"
	"github.com/nao1215/sitespider/internal/output"
)

// Archive saves zip archives and re-dispatches their members.
// Only one level is unpacked: members that are archives themselves are
// not opened, and markup members never feed links back to the crawl.
type Archive struct {
	channels *spiderlog.Channels
	members  map[model.Kind]Extractor
}

// NewArchive creates an Archive extractor. members maps member kinds
// (markup, document) to the extractors they are handed to.
func NewArchive(channels *spiderlog.Channels, members map[model.Kind]Extractor) *Archive {
	if channels == nil {
		channels = spiderlog.NewDiscardChannels()
	}
	return &Archive{
		channels: channels,
		members:  members,
	}
}

// Save writes payload to zip/{id}.zip, unpacks it into unzipped/{id} and
// dispatches every first-level member. The staging directory is removed
// when Save returns, whether members succeeded, failed or panicked.
func (a *Archive) Save(out *output.Layout, id string, payload []byte) error {
	zipPath, err := out.WriteFile(output.DirZip, id+".zip", payload)
	if err != nil {
		return err
	}

	staging := out.StagingDir(id)
	defer func() {
		if err := os.RemoveAll(staging); err != nil {
			a.channels.Errors.Error("failed to remove staging directory", "dir", staging, "error", err)
		}
	}()

	tree, err := archive.Unpack(zipPath, staging)
	if err != nil {
		a.channels.Errors.Error("failed to unpack archive", "id", id, "error", err)
		return nil
	}

	a.dispatch(out, id, tree)
	return nil
}

// dispatch hands each member to the extractor chosen by its extension.
// A failing member is logged and does not stop its siblings.
func (a *Archive) dispatch(out *output.Layout, archiveID string, tree *model.MemberTree) {
	for _, dir := range tree.Dirs {
		a.channels.Main.Debug("nested archive directory skipped", "archive", archiveID, "dir", dir)
	}

	for _, name := range tree.Files {
		path := filepath.Join(tree.Root, name)
		kind := model.ClassifyExtension(name)

		var err error
		switch kind {
		case model.KindText:
			err = a.copyText(out, path, textMemberID(name))
		case model.KindMarkup, model.KindDocument:
			err = a.saveMember(out, path, model.OutputName(name), kind)
		default:
			a.channels.Errors.Error("unrecognized archive member", "archive", archiveID, "member", name)
			continue
		}

		if err != nil {
			a.channels.Errors.Error("failed to extract archive member",
				"archive", archiveID,
				"member", name,
				"error", err,
			)
		}
	}
}

// textMemberID names a text member after its stem, so "notes.txt" is copied
// to txt/notes.txt. Markup and document members keep their extension in the
// identifier ("page.html" becomes "page_html"), which keeps their text
// artifacts apart from a text member with the same stem.
func textMemberID(name string) string {
	return model.OutputName(strings.TrimSuffix(name, filepath.Ext(name)))
}

// copyText copies a text member verbatim to txt/{memberID}.txt.
func (a *Archive) copyText(out *output.Layout, path, memberID string) error {
	data, err := os.ReadFile(path) //nolint:gosec // path is inside the staging directory
	if err != nil {
		return err
	}
	_, err = out.WriteFile(output.DirText, memberID+".txt", data)
	return err
}

// saveMember hands a markup or document member to its extractor.
func (a *Archive) saveMember(out *output.Layout, path, memberID string, kind model.Kind) error {
	extractor, ok := a.members[kind]
	if !ok {
		a.channels.Errors.Error("no extractor for archive member", "member", filepath.Base(path), "kind", kind.String())
		return nil
	}

	data, err := os.ReadFile(path) //nolint:gosec // path is inside the staging directory
	if err != nil {
		return err
	}
	return extractor.Save(out, memberID, data)
}
