package domain

import "context"

// RequestRepository defines persistence for redecoration requests.
type RequestRepository interface {
	Create(ctx context.Context, req *GenerationRequest) error
	GetByID(ctx context.Context, id string) (*GenerationRequest, error)
	Update(ctx context.Context, req *GenerationRequest) error
	GetByUser(ctx context.Context, userID string, limit int) ([]GenerationRequest, error)
	GetRecent(ctx context.Context, limit int) ([]GenerationRequest, error)
}

// CreditLedger debits a user's credit balance. A false return means
// insufficient funds; an error means the ledger itself failed.
type CreditLedger interface {
	Debit(ctx context.Context, userID string, amount int) (bool, error)
}

// RequestLogSink appends per-request log events. Implementations must never
// propagate failures into the pipeline.
type RequestLogSink interface {
	Log(ctx context.Context, requestID string, severity LogSeverity, message string)
}

// ObjectStore persists a blob under a category and returns a URL for it.
// The URL may be absolute or root-relative depending on the deployment.
type ObjectStore interface {
	Store(ctx context.Context, data []byte, filename, category string) (string, error)
}

// ProductMatch pairs a catalog product with a detection confidence.
type ProductMatch struct {
	ProductID string
	Score     float64
}

// ProductMatcher locates purchasable products in a generated image. Invoked
// fire-and-forget after a request completes; failures never affect the
// request's terminal state.
type ProductMatcher interface {
	DetectAndMatch(ctx context.Context, imageURL string) ([]ProductMatch, error)
}
