package record

// FieldKind describes how a field is represented in a single text cell.
type FieldKind int

const (
	KindText           FieldKind = iota // plain scalar
	KindList                            // ";"-separated list
	KindPairs                           // ";"-separated key:value list
	KindClassification                  // scalar drawn from Classifications
)

// FieldSpec names one contact field in canonical column order.
type FieldSpec struct {
	Name  string    // column name used by CSV headers and column mapping
	Label string    // line label used by the TXT dialect
	Kind  FieldKind // cell representation
}

// ContactFields is the canonical contact column order used by every export.
var ContactFields = []FieldSpec{
	{Name: "companyName", Label: "会社名", Kind: KindText},
	{Name: "name", Label: "氏名", Kind: KindText},
	{Name: "furigana", Label: "ふりがな", Kind: KindText},
	{Name: "department", Label: "部署", Kind: KindText},
	{Name: "title", Label: "役職", Kind: KindText},
	{Name: "zipCode", Label: "郵便番号", Kind: KindText},
	{Name: "address", Label: "住所", Kind: KindText},
	{Name: "tel", Label: "電話", Kind: KindText},
	{Name: "mobile", Label: "携帯", Kind: KindText},
	{Name: "fax", Label: "FAX", Kind: KindText},
	{Name: "email", Label: "Email", Kind: KindText},
	{Name: "website", Label: "Web", Kind: KindList},
	{Name: "sns", Label: "SNS", Kind: KindList},
	{Name: "otherTel", Label: "その他電話", Kind: KindText},
	{Name: "notes", Label: "備考", Kind: KindText},
	{Name: "tags", Label: "タグ", Kind: KindList},
	{Name: "classification", Label: "分類", Kind: KindClassification},
	{Name: "customFields", Label: "カスタム", Kind: KindPairs},
}

// Policy column names, in canonical order.
const (
	PolicyTitleField  = "title"
	PolicyFieldsField = "fields"
)

// PolicyColumns is the canonical policy column order.
var PolicyColumns = []string{PolicyTitleField, PolicyFieldsField}

// ContactFieldNames returns the canonical contact column names.
func ContactFieldNames() []string {
	names := make([]string, len(ContactFields))
	for i, f := range ContactFields {
		names[i] = f.Name
	}
	return names
}

// LookupContactField finds a field spec by column name.
func LookupContactField(name string) (FieldSpec, bool) {
	for _, f := range ContactFields {
		if f.Name == name {
			return f, true
		}
	}
	return FieldSpec{}, false
}

// LookupContactLabel finds a field spec by its TXT label.
func LookupContactLabel(label string) (FieldSpec, bool) {
	for _, f := range ContactFields {
		if f.Label == label {
			return f, true
		}
	}
	return FieldSpec{}, false
}

// TextField returns the address of a scalar text field, or nil if name is not one.
func (c *Contact) TextField(name string) **string {
	switch name {
	case "companyName":
		return &c.CompanyName
	case "name":
		return &c.Name
	case "furigana":
		return &c.Furigana
	case "department":
		return &c.Department
	case "title":
		return &c.Title
	case "zipCode":
		return &c.ZipCode
	case "address":
		return &c.Address
	case "tel":
		return &c.Tel
	case "mobile":
		return &c.Mobile
	case "fax":
		return &c.Fax
	case "email":
		return &c.Email
	case "otherTel":
		return &c.OtherTel
	case "notes":
		return &c.Notes
	}
	return nil
}

// ListField returns the address of a list field, or nil if name is not one.
func (c *Contact) ListField(name string) *[]string {
	switch name {
	case "website":
		return &c.Website
	case "sns":
		return &c.SNS
	case "tags":
		return &c.Tags
	}
	return nil
}
