package tracker

// AccountMetadata describes a brokerage account. It is descriptive only:
// none of its fields enter the analytics math.
type AccountMetadata struct {
	ID            string   `json:"id"`
	Name          string   `json:"name"`
	Owner         string   `json:"owner"`
	Institution   string   `json:"institution"`
	InstitutionID string   `json:"institution_id,omitempty"`
	Description   string   `json:"description,omitempty"`
	Tags          []string `json:"tags,omitempty"`
	CreatedAt     int64    `json:"created_at,omitempty"`
	UpdatedAt     int64    `json:"updated_at,omitempty"`
}
