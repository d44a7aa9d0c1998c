package dto

type PaymentVerifyResponse struct {
	TransactionID    string `json:"transaction_id"`
	BuyerID          string `json:"buyer_id"`
	CourseID         string `json:"course_id"`
	CourseTitle      string `json:"course_title"`
	Amount           int64  `json:"amount"`
	Currency         string `json:"currency"`
	AlreadyProcessed bool   `json:"already_processed"`
}

type AdminPaymentResponse struct {
	ID           string            `json:"id"`
	BuyerID      string            `json:"buyer_id"`
	InstructorID string            `json:"instructor_id"`
	CourseID     string            `json:"course_id"`
	CourseTitle  string            `json:"course_title"`
	Amount       int64             `json:"amount"`
	Currency     string            `json:"currency"`
	Status       string            `json:"status"`
	FraudReview  *FraudReviewView  `json:"fraud_review,omitempty"`
	CreatedAt    string            `json:"created_at"`
}

type FraudReviewView struct {
	IsSuspicious bool    `json:"is_suspicious"`
	RiskScore    float64 `json:"risk_score"`
	Reason       string  `json:"reason"`
	CheckedAt    string  `json:"checked_at"`
	Reviewed     bool    `json:"reviewed"`
}
