package pdf

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/go-pdf/fpdf"
	"go.uber.org/zap"

	domain "github.com/bryanwahyu/cyberveli/internal/domain/history"
)

// FileName is the attachment name used for downloads.
const FileName = "security-analysis-report.pdf"

// A4 portrait, millimetres.
const (
	pageW      = 210.0
	pageH      = 297.0
	margin     = 20.0
	usableW    = pageW - 2*margin
	bottom     = pageH - margin
	lineStep   = 7.0
	maxImageW  = 170.0
	maxImageH  = 120.0
	listIndent = 8.0
)

var (
	numberedRe = regexp.MustCompile(`^(\d+)[.)]\s+(.*)$`)
	bulletRe   = regexp.MustCompile(`^[-*\x{2022}]\s+(.*)$`)
	boldLineRe = regexp.MustCompile(`^\*\*(.+?)\*\*:?$`)
)

// Renderer lays a history record out as a multi-page PDF report.
type Renderer struct {
	Logger *zap.Logger
}

func NewRenderer(logger *zap.Logger) *Renderer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Renderer{Logger: logger}
}

// Render writes the PDF for rec into w.
func (r *Renderer) Render(w io.Writer, rec *domain.Record) error {
	doc, err := r.build(rec)
	if err != nil {
		return err
	}
	return doc.Output(w)
}

// layout keeps the vertical cursor between sections.
type layout struct {
	pdf    *fpdf.Fpdf
	tr     func(string) string
	y      float64
	images int
	log    *zap.Logger
}

func (r *Renderer) build(rec *domain.Record) (*fpdf.Fpdf, error) {
	if rec == nil {
		return nil, fmt.Errorf("pdf: nil record")
	}
	doc := fpdf.New("P", "mm", "A4", "")
	doc.SetMargins(margin, margin, margin)
	doc.SetAutoPageBreak(false, margin)
	doc.SetTitle("Security Analysis Report", true)
	doc.SetCreator("cyberveli", true)
	doc.AddPage()

	l := &layout{pdf: doc, tr: doc.UnicodeTranslatorFromDescriptor(""), y: margin, log: r.logger()}

	doc.SetFont("Helvetica", "B", 20)
	l.text(margin, "Security Analysis Report", 10)
	l.y += 4

	l.heading("File Details")
	l.field("File Name", rec.FileName)
	l.field("File Size", fmt.Sprintf("%.2f KB", float64(rec.FileSize)/1024))
	l.field("Created", rec.CreatedAt.UTC().Format("2006-01-02 15:04:05 UTC"))
	l.field("Status", string(rec.Status))
	if rec.AnalyzedAt != nil {
		l.field("Analyzed", rec.AnalyzedAt.UTC().Format("2006-01-02 15:04:05 UTC"))
	}

	if a := rec.Analysis; a != nil {
		l.heading("Analysis Results")
		l.field("Payload Classification", a.Label)
		l.field("IQA Score", fmt.Sprintf("%.4f", a.IQAScore))
		if names := a.ClassNames(); len(names) > 0 {
			top, _ := a.TopClass()
			l.paragraph("Class Probabilities:", "B")
			for _, n := range names {
				line := fmt.Sprintf("%s: %.2f%%", n, a.Probabilities[n]*100)
				style := ""
				if n == top {
					line += " (highest)"
					style = "B"
				}
				l.listItem("-", line, style)
			}
		}
	}

	if rec.Preview != "" {
		l.heading("Uploaded Image")
		l.image(rec.Preview)
	}

	if rec.Analysis != nil && len(rec.Analysis.FilteredImages) > 0 {
		l.heading("Filtered Images")
		for _, fi := range rec.Analysis.FilteredImages {
			l.paragraph(fi.Name, "I")
			l.image(fi.DataURI)
		}
	}

	if strings.TrimSpace(rec.Report) != "" {
		l.heading("Detailed Analysis")
		l.report(rec.Report)
	}

	if err := doc.Error(); err != nil {
		return nil, fmt.Errorf("pdf: %w", err)
	}
	return doc, nil
}

func (l *layout) ensure(h float64) {
	if l.y+h > bottom {
		l.pdf.AddPage()
		l.y = margin
	}
}

func (l *layout) text(x float64, s string, h float64) {
	l.ensure(h)
	l.pdf.Text(x, l.y+h*0.7, l.tr(s))
	l.y += h
}

func (l *layout) heading(s string) {
	l.y += 3
	l.ensure(lineStep * 2)
	l.pdf.SetFont("Helvetica", "B", 14)
	l.text(margin, s, lineStep+1)
	l.pdf.SetDrawColor(180, 180, 180)
	l.pdf.Line(margin, l.y, pageW-margin, l.y)
	l.y += 2
}

func (l *layout) field(label, value string) {
	l.pdf.SetFont("Helvetica", "B", 11)
	lw := l.pdf.GetStringWidth(l.tr(label+": ")) + 1
	l.ensure(lineStep)
	l.pdf.Text(margin, l.y+lineStep*0.7, l.tr(label+": "))
	l.pdf.SetFont("Helvetica", "", 11)
	lines := l.wrap(l.tr(value), usableW-lw)
	if len(lines) == 0 {
		lines = []string{""}
	}
	for i, line := range lines {
		if i > 0 {
			l.ensure(lineStep)
		}
		l.pdf.Text(margin+lw, l.y+lineStep*0.7, line)
		l.y += lineStep
	}
}

// paragraph wraps s to the usable width.
func (l *layout) paragraph(s, style string) {
	l.pdf.SetFont("Helvetica", style, 11)
	for _, line := range l.wrap(l.tr(s), usableW) {
		l.ensure(lineStep)
		l.pdf.Text(margin, l.y+lineStep*0.7, line)
		l.y += lineStep
	}
}

// listItem draws marker at the margin and wraps s with a hanging indent.
func (l *layout) listItem(marker, s, style string) {
	l.pdf.SetFont("Helvetica", style, 11)
	lines := l.wrap(l.tr(s), usableW-listIndent)
	for i, line := range lines {
		l.ensure(lineStep)
		if i == 0 {
			l.pdf.Text(margin, l.y+lineStep*0.7, l.tr(marker))
		}
		l.pdf.Text(margin+listIndent, l.y+lineStep*0.7, line)
		l.y += lineStep
	}
}

// wrap breaks an already translated string into lines no wider than w.
// Words longer than a line are cut.
func (l *layout) wrap(s string, w float64) []string {
	var lines []string
	cur := ""
	for _, word := range strings.Fields(s) {
		cand := word
		if cur != "" {
			cand = cur + " " + word
		}
		if l.pdf.GetStringWidth(cand) <= w {
			cur = cand
			continue
		}
		if cur != "" {
			lines = append(lines, cur)
		}
		for len(word) > 1 && l.pdf.GetStringWidth(word) > w {
			n := len(word) - 1
			for n > 1 && l.pdf.GetStringWidth(word[:n]) > w {
				n--
			}
			lines = append(lines, word[:n])
			word = word[n:]
		}
		cur = word
	}
	if cur != "" {
		lines = append(lines, cur)
	}
	return lines
}

func (l *layout) report(text string) {
	for _, raw := range strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n") {
		line := strings.TrimSpace(raw)
		switch {
		case line == "":
			l.y += lineStep / 2
		case strings.HasPrefix(line, "#"):
			l.subheading(strings.TrimSpace(strings.TrimLeft(line, "#")))
		case boldLineRe.MatchString(line):
			l.subheading(boldLineRe.FindStringSubmatch(line)[1])
		case numberedRe.MatchString(line):
			m := numberedRe.FindStringSubmatch(line)
			l.listItem(m[1]+".", stripMarkup(m[2]), "")
		case bulletRe.MatchString(line):
			l.listItem("•", stripMarkup(bulletRe.FindStringSubmatch(line)[1]), "")
		default:
			l.paragraph(stripMarkup(line), "")
		}
	}
}

func (l *layout) subheading(s string) {
	l.y += 2
	l.ensure(lineStep * 2)
	l.pdf.SetFont("Helvetica", "B", 12)
	l.text(margin, stripMarkup(s), lineStep)
}

// image places a data URI image centred, shrunk to fit 170x120 mm.
// Undecodable images are skipped.
func (l *layout) image(dataURI string) {
	data, typ, err := decodeDataURI(dataURI)
	if err != nil {
		l.log.Warn("pdf image skipped", zap.Error(err))
		return
	}

	name := fmt.Sprintf("img-%d", l.images)
	l.images++
	opts := fpdf.ImageOptions{ImageType: typ}
	info := l.pdf.RegisterImageOptionsReader(name, opts, bytes.NewReader(data))
	if !l.pdf.Ok() || info == nil {
		l.log.Warn("pdf image skipped", zap.String("image_type", typ), zap.Error(l.pdf.Error()))
		l.pdf.ClearError()
		return
	}

	w, h := fitImage(info.Width(), info.Height())
	if w <= 0 || h <= 0 {
		return
	}
	l.y += 2
	l.ensure(h)
	l.pdf.ImageOptions(name, (pageW-w)/2, l.y, w, h, false, opts, 0, "")
	l.y += h + 4
}

// fitImage shrinks w x h to the image box keeping the aspect ratio.
// Smaller images keep their size.
func fitImage(w, h float64) (float64, float64) {
	if w > maxImageW {
		h = h * maxImageW / w
		w = maxImageW
	}
	if h > maxImageH {
		w = w * maxImageH / h
		h = maxImageH
	}
	return w, h
}

func decodeDataURI(s string) ([]byte, string, error) {
	mediaType := "image/jpeg"
	payload := s
	if strings.HasPrefix(s, "data:") {
		comma := strings.IndexByte(s, ',')
		if comma < 0 {
			return nil, "", fmt.Errorf("malformed data uri")
		}
		meta := s[len("data:"):comma]
		if !strings.HasSuffix(meta, ";base64") {
			return nil, "", fmt.Errorf("data uri is not base64")
		}
		mediaType = strings.TrimSuffix(meta, ";base64")
		payload = s[comma+1:]
	}

	var typ string
	switch strings.ToLower(mediaType) {
	case "image/jpeg", "image/jpg", "":
		typ = "JPG"
	case "image/png":
		typ = "PNG"
	case "image/gif":
		typ = "GIF"
	default:
		return nil, "", fmt.Errorf("unsupported image type %q", mediaType)
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, "", fmt.Errorf("decode image: %w", err)
	}
	return data, typ, nil
}

func stripMarkup(s string) string {
	s = strings.ReplaceAll(s, "**", "")
	s = strings.ReplaceAll(s, "__", "")
	s = strings.ReplaceAll(s, "`", "")
	return s
}

func (r *Renderer) logger() *zap.Logger {
	if r.Logger == nil {
		return zap.NewNop()
	}
	return r.Logger
}
