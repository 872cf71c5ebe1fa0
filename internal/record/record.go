package record

// Contact represents a scanned business card.
// Scalar fields are nil when absent and point to "" when present but empty.
// List fields follow the same rule: nil is absent, an empty slice is present but empty.
type Contact struct {
	// ID is an opaque creation-time identifier (see NewContactID)
	ID int64 `json:"id"`

	CompanyName *string `json:"companyName,omitempty"`
	Name        *string `json:"name,omitempty"`
	Furigana    *string `json:"furigana,omitempty"`
	Department  *string `json:"department,omitempty"`
	Title       *string `json:"title,omitempty"`
	ZipCode     *string `json:"zipCode,omitempty"`
	Address     *string `json:"address,omitempty"`
	Tel         *string `json:"tel,omitempty"`
	Mobile      *string `json:"mobile,omitempty"`
	Fax         *string `json:"fax,omitempty"`
	Email       *string `json:"email,omitempty"`
	Website     []string `json:"website"`
	SNS         []string `json:"sns"`
	OtherTel    *string  `json:"otherTel,omitempty"`
	Notes       *string  `json:"notes,omitempty"`

	// Tags keep insertion order for display
	Tags []string `json:"tags"`

	Classification *Classification `json:"classification,omitempty"`
	CustomFields   []CustomField   `json:"customFields"`

	ImageURL     *string `json:"imageUrl,omitempty"`
	ImageURLBack *string `json:"imageUrlBack,omitempty"`

	// CreatedAt and UpdatedAt are Unix seconds; never exported to files
	CreatedAt int64 `json:"createdAt,omitempty"`
	UpdatedAt int64 `json:"updatedAt,omitempty"`
}

// CustomField is a user-defined key/value pair on a contact.
type CustomField struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Classification is the fixed set of contact categories.
type Classification string

const (
	ClassClient   Classification = "取引先"
	ClassPartner  Classification = "協力会社"
	ClassCustomer Classification = "顧客"
	ClassOther    Classification = "その他"
)

// Classifications lists the valid classification labels in display order.
var Classifications = []Classification{ClassClient, ClassPartner, ClassCustomer, ClassOther}

// ParseClassification maps a label onto the fixed set.
// Empty input returns false; unknown labels fall back to ClassOther.
func ParseClassification(s string) (Classification, bool) {
	if s == "" {
		return "", false
	}
	for _, c := range Classifications {
		if string(c) == s {
			return c, true
		}
	}
	return ClassOther, true
}

// Policy is an analyzed document: a titled bundle of images and extracted fields.
type Policy struct {
	// ID is a ULID
	ID        string        `json:"id"`
	Title     string        `json:"title"`
	ImageURLs []string      `json:"imageUrls"`
	Fields    []PolicyField `json:"fields"`
	CreatedAt int64         `json:"createdAt,omitempty"`
	UpdatedAt int64         `json:"updatedAt,omitempty"`
}

// PolicyField is one extracted key/value pair.
// ID only addresses the field during editing; it carries no meaning.
type PolicyField struct {
	ID    string `json:"id"`
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Memo is a free-text note with an optional generated summary.
type Memo struct {
	ID        string `json:"id"`
	Text      string `json:"text"`
	Summary   string `json:"summary,omitempty"`
	CreatedAt int64  `json:"createdAt"`
}

// IdentityKey returns the deduplication key for a contact: company and person name.
// Two contacts with the same pair are the same contact regardless of other fields.
func (c *Contact) IdentityKey() string {
	return deref(c.CompanyName) + "-" + deref(c.Name)
}

// IdentityKey returns the deduplication key for a policy: its title.
func (p *Policy) IdentityKey() string {
	return p.Title
}

// Clone returns a deep copy of the contact.
func (c *Contact) Clone() Contact {
	out := *c
	out.CompanyName = cloneStr(c.CompanyName)
	out.Name = cloneStr(c.Name)
	out.Furigana = cloneStr(c.Furigana)
	out.Department = cloneStr(c.Department)
	out.Title = cloneStr(c.Title)
	out.ZipCode = cloneStr(c.ZipCode)
	out.Address = cloneStr(c.Address)
	out.Tel = cloneStr(c.Tel)
	out.Mobile = cloneStr(c.Mobile)
	out.Fax = cloneStr(c.Fax)
	out.Email = cloneStr(c.Email)
	out.OtherTel = cloneStr(c.OtherTel)
	out.Notes = cloneStr(c.Notes)
	out.ImageURL = cloneStr(c.ImageURL)
	out.ImageURLBack = cloneStr(c.ImageURLBack)
	out.Website = cloneSlice(c.Website)
	out.SNS = cloneSlice(c.SNS)
	out.Tags = cloneSlice(c.Tags)
	out.CustomFields = cloneSlice(c.CustomFields)
	if c.Classification != nil {
		cl := *c.Classification
		out.Classification = &cl
	}
	return out
}

// Clone returns a deep copy of the policy.
func (p *Policy) Clone() Policy {
	out := *p
	out.ImageURLs = cloneSlice(p.ImageURLs)
	out.Fields = cloneSlice(p.Fields)
	return out
}

// String returns a pointer to s.
func String(s string) *string { return &s }

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func cloneStr(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

// cloneSlice keeps the nil/empty distinction.
func cloneSlice[T any](in []T) []T {
	if in == nil {
		return nil
	}
	out := make([]T, len(in))
	copy(out, in)
	return out
}
