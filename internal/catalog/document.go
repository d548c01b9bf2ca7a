package catalog

import "html"

// Section is the immutable, topic-scoped part of a document.
type Section struct {
	Title   string `json:"title"`
	Content string `json:"content"`
	RawText string `json:"rawText"`
}

// Document is a catalog entry. Content and Reference hold markup source,
// never rendered output.
type Document struct {
	ID        string            `json:"id"`
	Title     string            `json:"title"`
	Subtitle  string            `json:"subtitle"`
	Sections  map[Topic]Section `json:"sections"`
	Reference string            `json:"originalRef"`
}

func (d Document) Section(topic Topic) (Section, bool) {
	section, ok := d.Sections[topic]
	return section, ok
}

// Complete reports whether the document carries exactly one section per topic.
func (d Document) Complete() bool {
	if d.ID == "" || len(d.Sections) != len(Topics) {
		return false
	}
	for _, topic := range Topics {
		if _, ok := d.Sections[topic]; !ok {
			return false
		}
	}
	return true
}

func (d Document) clone() Document {
	sections := make(map[Topic]Section, len(d.Sections))
	for topic, section := range d.Sections {
		sections[topic] = section
	}
	d.Sections = sections
	return d
}

const (
	defaultSubtitle    = "Dossier Utilisateur"
	pendingPlaceholder = "<p>Analyse IA requise...</p>"
)

var customSectionTitles = map[Topic]string{
	Forces:       "Points Forts",
	Faiblesses:   "Risques & Lacunes",
	Propositions: "Solutions Stratégiques",
}

func newCustomDocument(id, title, subtitle, rawText string) Document {
	if subtitle == "" {
		subtitle = defaultSubtitle
	}
	sections := make(map[Topic]Section, len(Topics))
	for _, topic := range Topics {
		sections[topic] = Section{
			Title:   customSectionTitles[topic],
			Content: pendingPlaceholder,
			RawText: rawText,
		}
	}
	return Document{
		ID:        id,
		Title:     title,
		Subtitle:  subtitle,
		Sections:  sections,
		Reference: "<h2>" + html.EscapeString(title) + "</h2>\n" + html.EscapeString(rawText),
	}
}
