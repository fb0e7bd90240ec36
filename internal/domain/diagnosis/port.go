package diagnosis

import "context"

// Client asks a language model to explain a list of failure messages.
type Client interface {
	Diagnose(ctx context.Context, productID string, failures []string) (string, error)
}

// Repository port for persisting and querying diagnoses
type Repository interface {
	Migrate(ctx context.Context) error
	Save(ctx context.Context, d *Diagnosis) error
	Paginate(ctx context.Context, page, pageSize int) ([]*Diagnosis, error)
}
