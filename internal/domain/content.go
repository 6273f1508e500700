package domain

// Language is a target language offered by the platform.
type Language struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Code string `json:"code"`
}

// Dialog is an interpretation exercise. IsFree marks content available without
// an active membership.
type Dialog struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	LanguageID  string `json:"languageId"`
	Level       string `json:"level,omitempty"`
	IsFree      bool   `json:"isFree"`
}

// Segment is a single source/target sentence pair inside a dialog.
type Segment struct {
	ID          string `json:"id"`
	DialogID    string `json:"dialogId"`
	Order       int    `json:"order"`
	Text        string `json:"text"`
	Translation string `json:"translation"`
	AudioURL    string `json:"audioUrl,omitempty"`
}

// WordCategory groups vocabulary words. IsFree marks categories available
// without an active membership.
type WordCategory struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	IsFree      bool   `json:"isFree"`
}

// Word is a vocabulary entry within a category.
type Word struct {
	ID          string `json:"id"`
	CategoryID  string `json:"categoryId"`
	Text        string `json:"text"`
	Translation string `json:"translation"`
}

// Product is a purchasable membership plan.
type Product struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	Description  string  `json:"description,omitempty"`
	Price        float64 `json:"price"`
	Currency     string  `json:"currency"`
	DurationDays int     `json:"durationDays"`
}
