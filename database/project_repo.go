package database

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/plugin/dbresolver"

	"github.com/rpupo63/portfolio-admin-backend/models"
)

type ProjectRepo struct {
	db *gorm.DB
}

func NewProjectRepo(db *gorm.DB) *ProjectRepo {
	return &ProjectRepo{db}
}

// FindAll returns all projects ordered by id. It may be served by a replica.
func (r *ProjectRepo) FindAll(ctx context.Context) ([]models.Project, error) {
	var projects []models.Project
	err := r.db.WithContext(ctx).Order("id ASC").Find(&projects).Error
	return projects, err
}

// FindAllPrimary is FindAll pinned to the primary, for callers that just wrote.
func (r *ProjectRepo) FindAllPrimary(ctx context.Context) ([]models.Project, error) {
	var projects []models.Project
	err := r.db.WithContext(ctx).Clauses(dbresolver.Write).Order("id ASC").Find(&projects).Error
	return projects, err
}

// FindByID returns a project by its ID
func (r *ProjectRepo) FindByID(ctx context.Context, id int64) (*models.Project, error) {
	var project models.Project
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&project).Error
	if err != nil {
		return nil, err
	}
	return &project, nil
}

// FindByIDPrimary is FindByID pinned to the primary.
func (r *ProjectRepo) FindByIDPrimary(ctx context.Context, id int64) (*models.Project, error) {
	var project models.Project
	err := r.db.WithContext(ctx).Clauses(dbresolver.Write).Where("id = ?", id).First(&project).Error
	if err != nil {
		return nil, err
	}
	return &project, nil
}

// Add inserts a new project; the database assigns ID and CreatedAt.
func (r *ProjectRepo) Add(ctx context.Context, project *models.Project) error {
	project.ID = 0
	project.Normalize()
	return r.db.WithContext(ctx).Omit("id").Create(project).Error
}

// Update overwrites every column of the row with project.ID, including
// empty values. ID and CreatedAt are never written.
func (r *ProjectRepo) Update(ctx context.Context, project *models.Project) error {
	project.Normalize()
	result := r.db.WithContext(ctx).
		Model(&models.Project{}).
		Where("id = ?", project.ID).
		Select("*").
		Omit("id", "created_at").
		Updates(project)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// Delete removes a project from the database by id. Deleting a missing row
// is not an error.
func (r *ProjectRepo) Delete(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Project{}).Error
}
