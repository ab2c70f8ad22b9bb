package epub

import (
	"fmt"
	"io"
	"log"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/beevik/etree"
	"github.com/disintegration/imaging"
)

const coverItemID = "cover-image"

var coverExtensions = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
}

// detectCover returns the path of the first manifest item whose id contains
// "cover" and whose href has an image extension. Unresolvable or undecodable
// covers yield an empty path.
func (b *Book) detectCover() string {
	manifest := firstDescendant(b.pkg.Root(), "manifest")
	for _, item := range descendants(manifest, "item") {
		id := attrValue(item, "id")
		href := attrValue(item, "href")
		if id == "" || href == "" || !strings.Contains(id, "cover") {
			continue
		}
		if _, ok := coverExtensions[strings.ToLower(path.Ext(hrefPath(href)))]; !ok {
			continue
		}

		coverPath := filepath.Join(b.opfDir(), filepath.FromSlash(hrefPath(href)))
		if !inside(b.scratch, coverPath) {
			return ""
		}
		if _, err := imaging.Open(coverPath); err != nil {
			log.Printf("epub %s: ignoring cover %s: %v", b.path, href, err)
			return ""
		}
		return coverPath
	}
	return ""
}

// SetCover puts the image at src into the archive. Without an existing cover
// the file is added as cover<ext> with a manifest item and a cover meta
// marker. An existing cover is overwritten only when the extensions match.
// Changes reach the archive on the next Save.
func (b *Book) SetCover(src string) error {
	ext := strings.ToLower(filepath.Ext(src))
	mediaType, ok := coverExtensions[ext]
	if !ok {
		return fmt.Errorf("unsupported cover type %q", ext)
	}

	if b.Metadata.CoverPath != "" {
		if !strings.EqualFold(filepath.Ext(b.Metadata.CoverPath), ext) {
			return fmt.Errorf("%w: have %s, got %s", ErrCoverFormatMismatch, filepath.Ext(b.Metadata.CoverPath), ext)
		}
		return copyFile(src, b.Metadata.CoverPath)
	}

	name := "cover" + ext
	dst := filepath.Join(b.opfDir(), name)
	if err := copyFile(src, dst); err != nil {
		return err
	}

	root := b.pkg.Root()
	manifest := firstDescendant(root, "manifest")
	id := b.uniqueItemID(manifest, coverItemID)
	item := manifest.CreateElement("item")
	item.CreateAttr("id", id)
	item.CreateAttr("href", name)
	item.CreateAttr("media-type", mediaType)

	if metaEl := firstDescendant(root, "metadata"); metaEl != nil {
		if marker := findMeta(metaEl, metaCover); marker != nil {
			marker.CreateAttr("content", id)
		} else {
			marker := metaEl.CreateElement("meta")
			marker.CreateAttr("name", metaCover)
			marker.CreateAttr("content", id)
		}
	}

	if err := b.pkg.WriteToFile(b.opfPath); err != nil {
		return fmt.Errorf("write package document: %w", err)
	}
	b.Metadata.CoverPath = dst
	return nil
}

func (b *Book) uniqueItemID(manifest *etree.Element, base string) string {
	taken := make(map[string]bool)
	for _, item := range descendants(manifest, "item") {
		taken[attrValue(item, "id")] = true
	}
	id := base
	for i := 1; taken[id]; i++ {
		id = fmt.Sprintf("%s-%d", base, i)
	}
	return id
}

// hrefPath strips any fragment or query and decodes percent escapes.
func hrefPath(href string) string {
	if i := strings.IndexAny(href, "#?"); i >= 0 {
		href = href[:i]
	}
	if unescaped, err := url.PathUnescape(href); err == nil {
		return unescaped
	}
	return href
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open %s: %w", src, err)
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("create %s: %w", dst, err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("copy %s: %w", src, err)
	}
	return out.Close()
}
