package domain

// User is the session-cached snapshot of the authenticated user. LanguageID is
// nullable: nil means "no language chosen yet", a meaningful state rather than
// an error. The snapshot may lag behind backend truth because it is embedded in
// the signed session and only refreshed on token rotation.
type User struct {
	ID         string  `json:"id"`
	Email      string  `json:"email"`
	Username   string  `json:"username"`
	LanguageID *string `json:"languageId"`
}

// HasLanguage reports whether the user has completed language selection.
func (u User) HasLanguage() bool {
	return u.LanguageID != nil && *u.LanguageID != ""
}
