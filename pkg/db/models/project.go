package models

import (
	"time"

	"github.com/google/uuid"
)

// Project groups assemblies for reporting.
type Project struct {
	ID          uuid.UUID         `gorm:"column:id;type:uuid;primaryKey"`
	ProjectName string            `gorm:"column:project_name;not null;uniqueIndex"`
	Description *string           `gorm:"column:description"`
	Assemblies  []ProjectAssembly `gorm:"foreignKey:ProjectID;constraint:OnDelete:CASCADE"`
	CreatedAt   time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}

// ProjectAssembly links an assembly into a project.
type ProjectAssembly struct {
	ID         uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	ProjectID  uuid.UUID `gorm:"column:project_id;type:uuid;not null;uniqueIndex:idx_project_assembly"`
	AssemblyID uuid.UUID `gorm:"column:assembly_id;type:uuid;not null;uniqueIndex:idx_project_assembly"`
	Assembly   *Assembly `gorm:"foreignKey:AssemblyID"`
	CreatedAt  time.Time `gorm:"column:created_at;autoCreateTime"`
}
