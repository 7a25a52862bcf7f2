package render

import "html/template"

// Layout classes for a photo section.
const (
	LayoutEmpty  = "photo-empty"
	LayoutSingle = "photo-single"
	LayoutGrid   = "photo-grid"
)

// ViewModel is everything the report template reads. Every text field is
// already resolved to a display value or the placeholder.
type ViewModel struct {
	ReportID           string
	Title              string
	WorkOrder          string
	TechnicalReference string
	EmissionDate       string
	GeneratedAt        string

	Client ClientView

	Objective    Narrative
	DamageCauses Narrative
	Description  Narrative

	Isolation           []IsolationRow
	IsolationConclusion Conclusion
	Runout              []RunoutRow
	RunoutConclusion    Conclusion
	CurrentParts        []CurrentPartRow
	Conclusion          Conclusion

	Quote Quote

	PhotoSections []PhotoSection
	PhotoIndex    []PhotoView
	Index         []IndexEntry

	Signatures Signatures

	// ClientLogoPath is an absolute filesystem path, inlined at render time.
	ClientLogoPath string

	Assets Assets
	CSS    template.CSS
}

type ClientView struct {
	Name    string
	TaxID   string
	Address string
	City    string
	State   string
	Zip     string
}

// Narrative is either a single paragraph or, when the source had several
// non-empty lines, a bullet list.
type Narrative struct {
	Text  string
	Items []string
}

func (n Narrative) IsList() bool { return len(n.Items) > 1 }

type IsolationRow struct {
	Number      int
	Description string
	Value       string
	Unit        string
	Normalized  string
}

type RunoutRow struct {
	Number      int
	Description string
	Measured    string
	Tolerance   string
	Unit        string
	Status      string
}

type CurrentPartRow struct {
	Number      int
	Description string
	Observation string
}

// Conclusion text is HTML: inferred text carries emphasis markup, manual
// text has already been escaped.
type Conclusion struct {
	Text     template.HTML
	Verdict  string
	Badge    string
	Inferred bool
}

type QuotedRow struct {
	Legend      string
	Description string
	Quantity    string
	UnitValue   string
	Total       string
}

type Quote struct {
	Parts         []QuotedRow
	Services      []QuotedRow
	PartsTotal    string
	ServicesTotal string
	GrandTotal    string
}

func (q Quote) Empty() bool { return len(q.Parts) == 0 && len(q.Services) == 0 }

// PhotoView is one photo; Index is its position across the whole document.
type PhotoView struct {
	Index   int
	Legend  string
	Caption string
	Section string
	URL     template.URL
}

type PhotoSection struct {
	Tag    string
	Title  string
	Anchor string
	Photos []PhotoView
}

func (s PhotoSection) Layout() string {
	switch len(s.Photos) {
	case 0:
		return LayoutEmpty
	case 1:
		return LayoutSingle
	default:
		return LayoutGrid
	}
}

type IndexEntry struct {
	Number string
	Title  string
	Anchor string
}

type Signatures struct {
	PreparedBy    string
	CheckedBy     string
	ApprovedBy    string
	SignatureHash string
}

// Assets are data URIs so the engine never reads the filesystem for them.
type Assets struct {
	Logo       template.URL
	Header     template.URL
	Footer     template.URL
	Isolation  template.URL
	Runout     template.URL
	ClientLogo template.URL
}

// DocumentIndex is the fixed list of top-level sections.
func DocumentIndex() []IndexEntry {
	return []IndexEntry{
		{Number: "1", Title: "Dados do Cliente", Anchor: "cliente"},
		{Number: "2", Title: "Objetivo", Anchor: "objetivo"},
		{Number: "3", Title: "Causas do Dano", Anchor: "causas"},
		{Number: "4", Title: "Descrição dos Serviços", Anchor: "descricao"},
		{Number: "5", Title: "Resistência de Isolamento", Anchor: "isolamento"},
		{Number: "6", Title: "Batimento", Anchor: "batimento"},
		{Number: "7", Title: "Peças Atuais", Anchor: "pecas-atuais"},
		{Number: "8", Title: "Registro Fotográfico", Anchor: "fotos"},
		{Number: "9", Title: "Orçamento", Anchor: "orcamento"},
		{Number: "10", Title: "Conclusão", Anchor: "conclusao"},
	}
}
