package repository

import "gorm.io/gorm"

// RepositoryFactory creates and manages all repositories
type RepositoryFactory struct {
	db          *gorm.DB
	archiveRepo ArchiveRepository
}

// NewRepositoryFactory creates a new repository factory
func NewRepositoryFactory(db *gorm.DB) *RepositoryFactory {
	return &RepositoryFactory{
		db: db,
	}
}

// Archive returns the alert and prediction archive repository
func (f *RepositoryFactory) Archive() ArchiveRepository {
	if f.archiveRepo == nil {
		f.archiveRepo = NewArchiveRepository(f.db)
	}
	return f.archiveRepo
}
