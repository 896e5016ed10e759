// internal/domain/student/repository.go
package student

import "context"

// Repository defines persistence for Student entities.
type Repository interface {
	GetByID(ctx context.Context, id int64) (*Student, error)
	GetByFullName(ctx context.Context, fullName string) (*Student, error)
	List(ctx context.Context) ([]*Student, error)
}
