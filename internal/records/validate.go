package records

import "strings"

// Messages reported for missing required fields.
const (
	MsgMissingType    = "Please select an appointment type"
	MsgMissingDate    = "Please select a preferred date"
	MsgMissingPhone   = "Please enter your phone number"
	MsgMissingName    = "Please enter your name"
	MsgMissingEmail   = "Please enter your email address"
	MsgMissingMessage = "Please enter a message"
)

// MissingAppointmentFields lists a message for each required field left blank.
func MissingAppointmentFields(in AppointmentInput) []string {
	var problems []string
	if blank(in.AppointmentType) {
		problems = append(problems, MsgMissingType)
	}
	if blank(in.PreferredDate) {
		problems = append(problems, MsgMissingDate)
	}
	if blank(in.PhoneNumber) {
		problems = append(problems, MsgMissingPhone)
	}
	return problems
}

// MissingContactFields lists a message for each required field left blank.
func MissingContactFields(in ContactInput) []string {
	var problems []string
	if blank(in.Name) {
		problems = append(problems, MsgMissingName)
	}
	if blank(in.Email) {
		problems = append(problems, MsgMissingEmail)
	}
	if blank(in.Phone) {
		problems = append(problems, MsgMissingPhone)
	}
	if blank(in.Message) {
		problems = append(problems, MsgMissingMessage)
	}
	return problems
}

func blank(s string) bool {
	return strings.TrimSpace(s) == ""
}
