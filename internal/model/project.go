package model

type Project struct {
	ID   string `db:"id" json:"id"`
	Name string `db:"name" json:"name"`
}

// UserContext holds the global identity and tone defaults for the persona.
type UserContext struct {
	Name           string `db:"name" json:"name"`
	Company        string `db:"company" json:"company"`
	Voice          string `db:"voice" json:"voice"`
	BackStory      string `db:"back_story" json:"backStory"`
	WebsiteLinks   string `db:"website_links" json:"websiteLinks"`
	AdditionalInfo string `db:"additional_info" json:"additionalInfo"`
}
