package schemas

// Envelope is the result shape every event resolves to.
type Envelope struct {
	Done  bool   `json:"done"`
	Data  any    `json:"data,omitempty"`
	Error string `json:"error,omitempty"`
}

type StageOverwriteEnvelope struct {
	Envelope
	UpdatedPipelinesCount int64    `json:"updatedPipelinesCount"`
	DefaultStage          *string  `json:"defaultStage"`
	DeletedStages         []string `json:"deletedStages"`
}

type ExportPDFData struct {
	PDFURL string `json:"pdfUrl"`
	Path   string `json:"path"`
}

type ExportExcelData struct {
	ExcelURL string `json:"excelUrl"`
	Path     string `json:"path"`
}
