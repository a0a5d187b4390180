package question

// Question is immutable reference data for one quiz prompt. Answers holds
// the canonical correct strings (five or more for this game mode) and
// AcceptableVariations maps each canonical answer to its alternate spellings.
type Question struct {
	ID                   string              `json:"id"`
	Text                 string              `json:"question"`
	Answers              []string            `json:"answers"`
	AcceptableVariations map[string][]string `json:"acceptableVariations"`
	Category             string              `json:"category"`
	Difficulty           string              `json:"difficulty"`
	CreatedAt            int64               `json:"createdAt"`
	UpdatedAt            int64               `json:"updatedAt"`
}
