package booking

// AppointmentType is one consultation kind offered by the clinic.
type AppointmentType struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Duration string `json:"duration"`
	Price    string `json:"price"`
}

// Doctor is a bookable specialist.
type Doctor struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Specialty string `json:"specialty"`
	Fee       string `json:"fee"`
}

// Catalog lists what the booking wizard offers.
type Catalog struct {
	Types     []AppointmentType `json:"appointment_types"`
	Doctors   []Doctor          `json:"doctors"`
	TimeSlots []string          `json:"time_slots"`
}

// DefaultCatalog returns the clinic's published offering.
func DefaultCatalog() Catalog {
	return Catalog{
		Types: []AppointmentType{
			{ID: "consultation", Name: "General Consultation", Duration: "30 mins", Price: "₹500-800"},
			{ID: "followup", Name: "Follow-up Visit", Duration: "20 mins", Price: "₹300-500"},
			{ID: "surgery", Name: "Surgery Consultation", Duration: "45 mins", Price: "₹800-1000"},
			{ID: "emergency", Name: "Emergency Consultation", Duration: "Immediate", Price: "₹1000-1500"},
		},
		Doctors: []Doctor{
			{ID: "dr-rajesh", Name: "Dr. Rajesh Agarwal", Specialty: "Cataract & LASIK Surgery", Fee: "₹800"},
			{ID: "dr-priya", Name: "Dr. Priya Sharma", Specialty: "Retina Specialist", Fee: "₹700"},
			{ID: "dr-amit", Name: "Dr. Amit Kumar", Specialty: "Glaucoma & Corneal Diseases", Fee: "₹600"},
			{ID: "dr-sunita", Name: "Dr. Sunita Patel", Specialty: "Pediatric Ophthalmology", Fee: "₹650"},
		},
		TimeSlots: []string{
			"9:00 AM", "9:30 AM", "10:00 AM", "10:30 AM", "11:00 AM", "11:30 AM",
			"2:00 PM", "2:30 PM", "3:00 PM", "3:30 PM", "4:00 PM", "4:30 PM", "5:00 PM",
		},
	}
}

// TypeName resolves a type id to its display name. Unknown ids are returned
// unchanged so free-text types from the simple form still round-trip.
func (c Catalog) TypeName(id string) string {
	for _, t := range c.Types {
		if t.ID == id {
			return t.Name
		}
	}
	return id
}

// Doctor looks up a doctor by id.
func (c Catalog) Doctor(id string) (Doctor, bool) {
	for _, d := range c.Doctors {
		if d.ID == id {
			return d, true
		}
	}
	return Doctor{}, false
}

// HasTimeSlot reports whether slot is offered.
func (c Catalog) HasTimeSlot(slot string) bool {
	for _, s := range c.TimeSlots {
		if s == slot {
			return true
		}
	}
	return false
}
