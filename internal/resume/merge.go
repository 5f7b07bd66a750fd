package resume

// PersonalInfoUpdate carries only the contact fields the user touched
type PersonalInfoUpdate struct {
	Name     *string `json:"name,omitempty"`
	Email    *string `json:"email,omitempty"`
	Phone    *string `json:"phone,omitempty"`
	Location *string `json:"location,omitempty"`
	LinkedIn *string `json:"linkedin,omitempty"`
	Website  *string `json:"website,omitempty"`
}

// Update is a partial ParsedResume. A nil field means "not provided";
// Summary distinguishes an explicit "" from absence.
type Update struct {
	PersonalInfo   *PersonalInfoUpdate `json:"personalInfo,omitempty"`
	Summary        *string             `json:"summary,omitempty"`
	WorkExperience []WorkExperience    `json:"workExperience,omitempty"`
	Education      []Education         `json:"education,omitempty"`
	Skills         []string            `json:"skills,omitempty"`
	Certifications []string            `json:"certifications,omitempty"`
}

// Merge applies u on top of base without validating. Personal info merges
// key-wise, Summary replaces only when present and lists replace wholesale.
func Merge(base ParsedResume, u Update) ParsedResume {
	merged := base.Clone()

	if p := u.PersonalInfo; p != nil {
		setIf(&merged.PersonalInfo.Name, p.Name)
		setIf(&merged.PersonalInfo.Email, p.Email)
		setIf(&merged.PersonalInfo.Phone, p.Phone)
		setIf(&merged.PersonalInfo.Location, p.Location)
		setIf(&merged.PersonalInfo.LinkedIn, p.LinkedIn)
		setIf(&merged.PersonalInfo.Website, p.Website)
	}
	setIf(&merged.Summary, u.Summary)

	if u.WorkExperience != nil {
		merged.WorkExperience = ParsedResume{WorkExperience: u.WorkExperience}.Clone().WorkExperience
	}
	if u.Education != nil {
		merged.Education = cloneSlice(u.Education)
	}
	if u.Skills != nil {
		merged.Skills = cloneSlice(u.Skills)
	}
	if u.Certifications != nil {
		merged.Certifications = cloneSlice(u.Certifications)
	}

	return merged
}

func setIf(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}
