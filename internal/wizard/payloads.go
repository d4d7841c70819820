package wizard

// PersonalPayload covers identity and tariff-relevant location fields.
type PersonalPayload struct {
	FirstName  string `json:"first_name" validate:"required,max=100"`
	LastName   string `json:"last_name" validate:"required,max=100"`
	BirthDate  string `json:"birth_date" validate:"required,datetime=2006-01-02"`
	PostalCode string `json:"postal_code" validate:"required,max=10"`
	SchoolID   string `json:"school_id" validate:"omitempty,uuid4"`
}

// HealthPayload is the medical sheet.
type HealthPayload struct {
	DoctorName        string `json:"doctor_name" validate:"required,max=200"`
	DoctorPhone       string `json:"doctor_phone" validate:"required,max=30"`
	TetanusVaccinated bool   `json:"tetanus_vaccinated"`
	MedicalNotes      string `json:"medical_notes" validate:"max=2000"`
	Medication        string `json:"medication" validate:"max=2000"`
}

// AllergiesPayload is the allergy sheet. Details are mandatory as soon as any
// allergy is declared.
type AllergiesPayload struct {
	HasFoodAllergies bool   `json:"has_food_allergies"`
	HasMedAllergies  bool   `json:"has_med_allergies"`
	Details          string `json:"details" validate:"required_if=HasFoodAllergies true,required_if=HasMedAllergies true,max=2000"`
	SpecialDiet      string `json:"special_diet" validate:"max=500"`
}

// ActivitiesPayload records activity restrictions.
type ActivitiesPayload struct {
	CannotParticipate bool   `json:"cannot_participate"`
	Details           string `json:"details" validate:"required_if=CannotParticipate true,max=2000"`
	SwimLevel         string `json:"swim_level" validate:"omitempty,oneof=none beginner intermediate advanced"`
}

// DeparturePayload records pickup arrangements. Someone must be named unless
// the kid leaves alone.
type DeparturePayload struct {
	LeavesAlone    bool   `json:"leaves_alone"`
	PickupPersons  string `json:"pickup_persons" validate:"required_unless=LeavesAlone true,max=1000"`
	DepartureNotes string `json:"departure_notes" validate:"max=1000"`
}

// InclusionPayload records inclusion support needs.
type InclusionPayload struct {
	NeedsSupport bool   `json:"needs_support"`
	Details      string `json:"details" validate:"required_if=NeedsSupport true,max=2000"`
	PastSupport  string `json:"past_support" validate:"max=2000"`
}
