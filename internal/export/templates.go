package export

import (
	"bytes"
	"embed"
	"html/template"
	"time"

	"github.com/cliniquerisimed-lab/jongwane/internal/catalog"
	"github.com/cliniquerisimed-lab/jongwane/internal/richtext"
)

//go:embed templates/*.html
var templateFS embed.FS

var reportTemplate = template.Must(template.New("report.html").Funcs(template.FuncMap{
	"formatDate": func(t time.Time, layout string) string {
		return t.Format(layout)
	},
}).ParseFS(templateFS, "templates/report.html"))

// TemplateData holds data for report template rendering
type TemplateData struct {
	Title       string
	Subtitle    string
	GeneratedAt time.Time
	Reference   template.HTML
	Sections    []TemplateSection
}

type TemplateSection struct {
	Topic    catalog.Topic
	Title    string
	Source   string
	Analysis template.HTML
	Note     string
}

func templateData(r Report) TemplateData {
	data := TemplateData{
		Title:       r.Document.Title,
		Subtitle:    r.Document.Subtitle,
		GeneratedAt: r.GeneratedAt,
		// Reference markup is authored in code or escaped when a custom
		// document is created.
		Reference: template.HTML(r.Document.Reference),
	}
	for _, topic := range catalog.Topics {
		section, ok := r.Document.Section(topic)
		if !ok {
			continue
		}
		ts := TemplateSection{
			Topic:  topic,
			Title:  section.Title,
			Source: section.RawText,
			Note:   r.Notes[topic],
		}
		if text, ok := r.Analyses[topic]; ok {
			// Stored analyses only ever carry <strong> markup.
			ts.Analysis = template.HTML(richtext.Parse(text).HTML())
		}
		data.Sections = append(data.Sections, ts)
	}
	return data
}

// RenderReportHTML renders the report template
func RenderReportHTML(r Report) (string, error) {
	var buf bytes.Buffer
	if err := reportTemplate.Execute(&buf, templateData(r)); err != nil {
		return "", err
	}
	return buf.String(), nil
}
