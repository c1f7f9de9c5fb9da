package booking

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func TestWizardRequiresCurrentStepFields(t *testing.T) {
	d := &Draft{Step: StepTypeSelection}

	err := d.Next()
	var incomplete *StepIncompleteError
	require.True(t, errors.As(err, &incomplete))
	assert.Equal(t, []string{"appointment_type"}, incomplete.Missing)
	assert.Equal(t, StepTypeSelection, d.Step)

	require.NoError(t, d.Apply(DraftPatch{AppointmentType: strPtr("consultation")}))
	require.NoError(t, d.Next())
	assert.Equal(t, StepDoctorTime, d.Step)

	require.NoError(t, d.Apply(DraftPatch{Doctor: strPtr("dr-amit")}))
	err = d.Next()
	require.True(t, errors.As(err, &incomplete))
	assert.Equal(t, []string{"date", "time"}, incomplete.Missing)

	require.NoError(t, d.Apply(DraftPatch{Date: strPtr("2030-01-01"), Time: strPtr("9:30 AM")}))
	require.NoError(t, d.Next())
	assert.Equal(t, StepPersonalDetails, d.Step)
	assert.Equal(t, 3, d.Step.Number())

	// The personal-details step is left only by submitting.
	assert.ErrorIs(t, d.Next(), ErrWrongStep)
}

func TestWizardPreviousNeverGoesBelowFirstStep(t *testing.T) {
	d := &Draft{Step: StepPersonalDetails}
	require.NoError(t, d.Previous())
	assert.Equal(t, StepDoctorTime, d.Step)
	require.NoError(t, d.Previous())
	assert.Equal(t, StepTypeSelection, d.Step)
	require.NoError(t, d.Previous())
	assert.Equal(t, StepTypeSelection, d.Step)
}

func TestWizardConfirmedIsTerminal(t *testing.T) {
	d := &Draft{Step: StepConfirmed}
	assert.ErrorIs(t, d.Next(), ErrDraftConfirmed)
	assert.ErrorIs(t, d.Previous(), ErrDraftConfirmed)
	assert.ErrorIs(t, d.Apply(DraftPatch{Phone: strPtr("1")}), ErrDraftConfirmed)
	assert.Equal(t, StepConfirmed, d.Step)
}

func TestDraftInputFoldsIntakeIntoNotes(t *testing.T) {
	d := &Draft{
		AppointmentType:   "surgery",
		Doctor:            "dr-rajesh",
		Date:              "2030-01-01",
		Time:              "2:00 PM",
		FirstName:         " Asha ",
		LastName:          "Rao",
		Email:             "asha@example.com",
		Phone:             "9876543210",
		Symptoms:          "blurred vision",
		PreviousTreatment: true,
	}
	in := d.input(DefaultCatalog())
	assert.Equal(t, "Surgery Consultation", in.AppointmentType)
	assert.Equal(t, "Dr. Rajesh Agarwal", in.Doctor)
	assert.Equal(t, "Asha Rao", in.PatientName)
	assert.Equal(t, "2:00 PM", in.TimeSlot)
	assert.Equal(t, "Symptoms: blurred vision\nPrevious treatment: yes", in.Notes)
}
