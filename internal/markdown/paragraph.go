package markdown

import "github.com/starford/dayone2md/internal/models"

// Kind tags the variant held by a Paragraph.
type Kind string

// Paragraph kinds.
const (
	KindCover   Kind = "cover"
	KindImage   Kind = "image"
	KindGallery Kind = "gallery"
	KindPost    Kind = "post"
	KindText    Kind = "paragraph"
)

// Image is one embedded photo, numbered by encounter order within its entry.
type Image struct {
	Index      int    // 0-based, never reused within an entry
	SourceName string // file name in the app's photo directory
	OutputName string // file name written into the vault
	Attachment models.Attachment
}

// PostRef points at another entry by UUID.
type PostRef struct {
	UUID string
}

// Paragraph is one output unit. Only the field matching Kind is set:
// Image for cover and image, Gallery for gallery, Post for post, Text for paragraph.
type Paragraph struct {
	Kind    Kind
	Text    string
	Image   *Image
	Gallery []Image
	Post    *PostRef
}

// Images returns the images carried by p, in order.
func (p Paragraph) Images() []Image {
	switch p.Kind {
	case KindCover, KindImage:
		return []Image{*p.Image}
	case KindGallery:
		return p.Gallery
	}
	return nil
}

// Document is the parse result of one entry.
type Document struct {
	Title      string
	Slug       string
	HasTitle   bool
	Paragraphs []Paragraph
}

// HasImages reports whether any paragraph carries an image.
func (d *Document) HasImages() bool {
	for _, p := range d.Paragraphs {
		if len(p.Images()) > 0 {
			return true
		}
	}
	return false
}

func textParagraph(text string) Paragraph {
	return Paragraph{Kind: KindText, Text: text}
}

func isBlank(p Paragraph) bool {
	return p.Kind == KindText && p.Text == ""
}
