package pdfcodec

// Permission weights written into the document's permission mask.
const (
	PermPrinting         = 4
	PermCopying          = 16
	PermEditing          = 32
	PermComments         = 64
	PermFormFilling      = 256
	PermDocumentAssembly = 1024
)

// PermissionSet lists the actions a reader holding only the user password may perform.
type PermissionSet struct {
	Printing         bool `json:"allow_printing"`
	Copying          bool `json:"allow_copying"`
	Editing          bool `json:"allow_editing"`
	Comments         bool `json:"allow_comments"`
	FormFilling      bool `json:"allow_form_filling"`
	DocumentAssembly bool `json:"allow_document_assembly"`
}

// DefaultPermissions allows printing, copying, comments and form filling.
func DefaultPermissions() PermissionSet {
	return PermissionSet{
		Printing:    true,
		Copying:     true,
		Comments:    true,
		FormFilling: true,
	}
}

// Mask sums the weights of the granted permissions.
func (p PermissionSet) Mask() int {
	mask := 0
	if p.Printing {
		mask += PermPrinting
	}
	if p.Copying {
		mask += PermCopying
	}
	if p.Editing {
		mask += PermEditing
	}
	if p.Comments {
		mask += PermComments
	}
	if p.FormFilling {
		mask += PermFormFilling
	}
	if p.DocumentAssembly {
		mask += PermDocumentAssembly
	}
	return mask
}
