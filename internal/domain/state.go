package domain

import "passport-portal/internal/workflow"

type ApplicationStatus string

const (
	StatusSubmitted           ApplicationStatus = "submitted"
	StatusPaymentPending      ApplicationStatus = "payment_pending"
	StatusPaymentVerified     ApplicationStatus = "payment_verified"
	StatusCounterVerification ApplicationStatus = "counter_verification"
	StatusBiometricsPending   ApplicationStatus = "biometrics_pending"
	StatusBiometricsCompleted ApplicationStatus = "biometrics_completed"
	StatusControllerReview    ApplicationStatus = "controller_review"
	StatusSeniorOfficerReview ApplicationStatus = "senior_officer_review"
	StatusDataEntry           ApplicationStatus = "data_entry"
	StatusPrintingPending     ApplicationStatus = "printing_pending"
	StatusPrinting            ApplicationStatus = "printing"
	StatusQualityAssurance    ApplicationStatus = "quality_assurance"
	StatusReadyForCollection  ApplicationStatus = "ready_for_collection"
	StatusCollected           ApplicationStatus = "collected"
	StatusOnHold              ApplicationStatus = "on_hold"
	StatusRejected            ApplicationStatus = "rejected"
)

// PassportApplication is the processing pipeline of a new passport
// application. Rejection is refused once printing has begun, and quality
// assurance may send a booklet back to printing.
var PassportApplication = workflow.NewDefinition("passport_application",
	workflow.State[ApplicationStatus]{
		Status:      StatusSubmitted,
		Description: "The application has been received and is waiting for payment to be requested.",
		Next:        []ApplicationStatus{StatusPaymentPending, StatusRejected},
	},
	workflow.State[ApplicationStatus]{
		Status:      StatusPaymentPending,
		Description: "The applicant has been asked to pay the passport fee.",
		Next:        []ApplicationStatus{StatusPaymentVerified, StatusRejected},
	},
	workflow.State[ApplicationStatus]{
		Status:      StatusPaymentVerified,
		Description: "The fee payment has been confirmed by the finance desk.",
		Next:        []ApplicationStatus{StatusCounterVerification, StatusRejected},
	},
	workflow.State[ApplicationStatus]{
		Status:      StatusCounterVerification,
		Description: "Counter staff are checking the original supporting documents.",
		Next:        []ApplicationStatus{StatusBiometricsPending, StatusOnHold, StatusRejected},
	},
	workflow.State[ApplicationStatus]{
		Status:      StatusBiometricsPending,
		Description: "The applicant must visit an office to give photograph and fingerprints.",
		Next:        []ApplicationStatus{StatusBiometricsCompleted, StatusOnHold, StatusRejected},
	},
	workflow.State[ApplicationStatus]{
		Status:      StatusBiometricsCompleted,
		Description: "Photograph and fingerprints have been captured.",
		Next:        []ApplicationStatus{StatusControllerReview, StatusRejected},
	},
	workflow.State[ApplicationStatus]{
		Status:      StatusControllerReview,
		Description: "The controller is reviewing the application.",
		Next:        []ApplicationStatus{StatusSeniorOfficerReview, StatusOnHold, StatusRejected},
	},
	workflow.State[ApplicationStatus]{
		Status:      StatusSeniorOfficerReview,
		Description: "A senior officer is giving final approval.",
		Next:        []ApplicationStatus{StatusDataEntry, StatusOnHold, StatusRejected},
	},
	workflow.State[ApplicationStatus]{
		Status:      StatusDataEntry,
		Description: "Approved details are being entered for personalisation.",
		Next:        []ApplicationStatus{StatusPrintingPending, StatusOnHold, StatusRejected},
	},
	workflow.State[ApplicationStatus]{
		Status:      StatusPrintingPending,
		Description: "The passport is queued for printing.",
		Next:        []ApplicationStatus{StatusPrinting, StatusOnHold, StatusRejected},
	},
	workflow.State[ApplicationStatus]{
		Status:      StatusPrinting,
		Description: "The passport booklet is being printed.",
		Next:        []ApplicationStatus{StatusQualityAssurance},
	},
	workflow.State[ApplicationStatus]{
		Status:      StatusQualityAssurance,
		Description: "The printed passport is being checked for defects.",
		Next:        []ApplicationStatus{StatusReadyForCollection, StatusPrinting},
	},
	workflow.State[ApplicationStatus]{
		Status:      StatusReadyForCollection,
		Description: "The passport is ready to be collected from the issuing office.",
		Next:        []ApplicationStatus{StatusCollected},
	},
	workflow.State[ApplicationStatus]{
		Status:      StatusCollected,
		Description: "The passport has been handed over to the applicant.",
	},
	workflow.State[ApplicationStatus]{
		Status:      StatusOnHold,
		Description: "Processing is paused until an officer resumes the application.",
		Next: []ApplicationStatus{
			StatusCounterVerification,
			StatusBiometricsPending,
			StatusControllerReview,
			StatusSeniorOfficerReview,
			StatusDataEntry,
			StatusPrintingPending,
			StatusRejected,
		},
	},
	workflow.State[ApplicationStatus]{
		Status:         StatusRejected,
		Description:    "The application has been rejected.",
		ReasonRequired: true,
	},
)

type AppointmentStatus string

const (
	AppointmentPending     AppointmentStatus = "pending"
	AppointmentConfirmed   AppointmentStatus = "confirmed"
	AppointmentRescheduled AppointmentStatus = "rescheduled"
	AppointmentCompleted   AppointmentStatus = "completed"
	AppointmentCancelled   AppointmentStatus = "cancelled"
	AppointmentNoShow      AppointmentStatus = "no_show"
)

var Appointment = workflow.NewDefinition("appointment",
	workflow.State[AppointmentStatus]{
		Status:      AppointmentPending,
		Description: "The booking request is waiting for office confirmation.",
		Next:        []AppointmentStatus{AppointmentConfirmed, AppointmentRescheduled, AppointmentCancelled},
	},
	workflow.State[AppointmentStatus]{
		Status:      AppointmentConfirmed,
		Description: "The appointment slot is confirmed.",
		Next:        []AppointmentStatus{AppointmentCompleted, AppointmentRescheduled, AppointmentCancelled, AppointmentNoShow},
	},
	workflow.State[AppointmentStatus]{
		Status:      AppointmentRescheduled,
		Description: "A new slot has been proposed and awaits confirmation.",
		Next:        []AppointmentStatus{AppointmentConfirmed, AppointmentCancelled},
	},
	workflow.State[AppointmentStatus]{
		Status:      AppointmentCompleted,
		Description: "The applicant attended the appointment.",
	},
	workflow.State[AppointmentStatus]{
		Status:         AppointmentCancelled,
		Description:    "The appointment was cancelled.",
		ReasonRequired: true,
	},
	workflow.State[AppointmentStatus]{
		Status:      AppointmentNoShow,
		Description: "The applicant did not attend the appointment.",
	},
)

type RenewalStatus string

const (
	RenewalSubmitted   RenewalStatus = "submitted"
	RenewalUnderReview RenewalStatus = "under_review"
	RenewalApproved    RenewalStatus = "approved"
	RenewalCompleted   RenewalStatus = "completed"
	RenewalRejected    RenewalStatus = "rejected"
)

var Renewal = workflow.NewDefinition("passport_renewal",
	workflow.State[RenewalStatus]{
		Status:      RenewalSubmitted,
		Description: "The renewal request has been received.",
		Next:        []RenewalStatus{RenewalUnderReview, RenewalRejected},
	},
	workflow.State[RenewalStatus]{
		Status:      RenewalUnderReview,
		Description: "An officer is reviewing the renewal request.",
		Next:        []RenewalStatus{RenewalApproved, RenewalRejected},
	},
	workflow.State[RenewalStatus]{
		Status:      RenewalApproved,
		Description: "The renewal is approved and the new passport is being issued.",
		Next:        []RenewalStatus{RenewalCompleted},
	},
	workflow.State[RenewalStatus]{
		Status:      RenewalCompleted,
		Description: "The renewed passport has been issued.",
	},
	workflow.State[RenewalStatus]{
		Status:         RenewalRejected,
		Description:    "The renewal request has been rejected.",
		ReasonRequired: true,
	},
)

// RecordKind selects the workflow a record follows.
type RecordKind string

const (
	KindPassportApplication RecordKind = "passport_application"
	KindAppointment         RecordKind = "appointment"
	KindRenewal             RecordKind = "passport_renewal"
)

var machines = map[RecordKind]workflow.Machine{
	KindPassportApplication: workflow.Erase(PassportApplication),
	KindAppointment:         workflow.Erase(Appointment),
	KindRenewal:             workflow.Erase(Renewal),
}

// MachineFor returns the transition table for kind.
func MachineFor(kind RecordKind) (workflow.Machine, bool) {
	m, ok := machines[kind]
	return m, ok
}

// Kinds lists the supported record kinds in a stable order.
func Kinds() []RecordKind {
	return []RecordKind{KindPassportApplication, KindAppointment, KindRenewal}
}

type AuditState string

const (
	AuditSubmitted         AuditState = "SUBMITTED"
	AuditStatusChanged     AuditState = "STATUS_CHANGED"
	AuditTransitionRefused AuditState = "TRANSITION_REFUSED"
	AuditDocumentAttached  AuditState = "DOCUMENT_ATTACHED"
)
