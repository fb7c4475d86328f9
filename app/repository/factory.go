package repository

import (
	"sync"

	"gorm.io/gorm"
)

// Factory manages repository instances and ensures they are singletons
type Factory struct {
	db    *gorm.DB
	repos *Repositories
	once  sync.Once
}

// NewFactory creates a new repository factory. A nil db selects the in-memory store.
func NewFactory(db *gorm.DB) *Factory {
	return &Factory{
		db: db,
	}
}

// GetRepositories returns a singleton instance of all repositories
func (f *Factory) GetRepositories() *Repositories {
	f.once.Do(func() {
		if f.db == nil {
			f.repos = NewMemoryRepositories()
			return
		}
		f.repos = NewRepositories(f.db)
	})
	return f.repos
}

// GetIssueRepository returns the issue repository instance
func (f *Factory) GetIssueRepository() IssueRepository {
	return f.GetRepositories().Issue
}

// GetContributionRepository returns the contribution repository instance
func (f *Factory) GetContributionRepository() ContributionRepository {
	return f.GetRepositories().Contribution
}

// Global factory instance
var globalFactory *Factory
var factoryOnce sync.Once

// InitializeFactory initializes the global repository factory
func InitializeFactory(db *gorm.DB) {
	factoryOnce.Do(func() {
		globalFactory = NewFactory(db)
	})
}

// GetGlobalFactory returns the global repository factory instance
func GetGlobalFactory() *Factory {
	if globalFactory == nil {
		panic("Repository factory not initialized. Call InitializeFactory first.")
	}
	return globalFactory
}

// GetGlobalRepositories returns the global repositories instance
func GetGlobalRepositories() *Repositories {
	return GetGlobalFactory().GetRepositories()
}
