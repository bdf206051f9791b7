package conversation

// Reply button ids offered from the greeting.
const (
	ButtonApplyYes = "APPLY_YES"
	ButtonApplyNo  = "APPLY_NO"
)

const (
	msgGreeting        = "Hi! Are you here to apply for the Internship?"
	msgAskName         = "Please enter your name:"
	msgDeclined        = "Thank you for letting us know. If you change your mind, feel free to contact us."
	msgAskEmail        = "Please enter your email ID:"
	msgInvalidName     = "Invalid name. Please enter your name:"
	msgAskExperience   = "Please select how many years of experience you have with Python/JS/Automation Development:"
	msgInvalidEmail    = "Invalid email ID. Please enter your email ID:"
	msgThanks          = "Thanks for connecting. We will get back to you shortly!"
	msgNotUnderstood   = "Sorry, I didn't understand that. Please try again."
	msgUseButtons      = "Please tap one of the buttons above to continue."
	msgTypeReply       = "Please type your answer as a message."
	msgUseList         = "Please pick an option from the list above."
	experienceSection  = "Years of Experience"
	experienceHeader   = "Experience"
	experienceFooter   = "Choose"
	experienceMenuOpen = "View More"
)

// ExperienceOption is one row of the experience menu.
type ExperienceOption struct {
	ID    string
	Label string
}

// ExperienceOptions lists the selectable years of experience in menu order.
var ExperienceOptions = []ExperienceOption{
	{ID: "1", Label: "1 year"},
	{ID: "2", Label: "2 years"},
	{ID: "3", Label: "3 years"},
	{ID: "4", Label: "4 years"},
	{ID: "5", Label: "5 years"},
}

// ExperienceLabel maps a list reply id to its label.
func ExperienceLabel(id string) (string, bool) {
	for _, opt := range ExperienceOptions {
		if opt.ID == id {
			return opt.Label, true
		}
	}
	return "", false
}

func greetingPrompt() ButtonPrompt {
	return ButtonPrompt{Buttons: []Button{
		{ID: ButtonApplyYes, Title: "Yes"},
		{ID: ButtonApplyNo, Title: "No"},
	}}
}

func experiencePrompt() ListPrompt {
	rows := make([]ListRow, 0, len(ExperienceOptions))
	for _, opt := range ExperienceOptions {
		rows = append(rows, ListRow{ID: opt.ID, Title: opt.Label})
	}
	return ListPrompt{
		Header:      experienceHeader,
		Footer:      experienceFooter,
		ButtonLabel: experienceMenuOpen,
		Sections:    []ListSection{{Title: experienceSection, Rows: rows}},
	}
}
