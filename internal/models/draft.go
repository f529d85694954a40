package models

// DraftMode is the state of the product form.
type DraftMode string

const (
	DraftCreating DraftMode = "creating"
	DraftEditing  DraftMode = "editing"
)

// Draft is the unsaved product form. Creating carries an empty product, Editing a copy of
// the selected product including its ID.
type Draft struct {
	Mode    DraftMode `json:"mode"`
	Product Product   `json:"product"`
}

func NewDraft() Draft {
	return Draft{Mode: DraftCreating}
}

func EditDraft(p Product) Draft {
	return Draft{Mode: DraftEditing, Product: p}
}

func (d Draft) Editing() bool {
	return d.Mode == DraftEditing
}
