package models

import (
	"time"

	"github.com/google/uuid"
)

// ProductModel is a catalog model row, linking a product to its brand
// and category. Owned by the catalog admin screens; read-only here.
type ProductModel struct {
	ID         uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name       string    `gorm:"column:name;not null"`
	BrandID    uuid.UUID `gorm:"column:brand_id;type:uuid;not null;index:product_models_brand_id_idx"`
	CategoryID uuid.UUID `gorm:"column:category_id;type:uuid;not null;index:product_models_category_id_idx"`
	Brand      *Brand    `gorm:"foreignKey:BrandID"`
	Category   *Category `gorm:"foreignKey:CategoryID"`
	CreatedAt  time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (ProductModel) TableName() string { return "product_models" }

// Brand is a catalog brand row. Read-only here.
type Brand struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name      string    `gorm:"column:name;not null"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}

// Category is a catalog category row. Read-only here.
type Category struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name      string    `gorm:"column:name;not null"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}

// User carries the account fields the bidding and notification paths
// read. Authentication and profile management live outside this service.
type User struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name      string    `gorm:"column:name;not null"`
	Email     string    `gorm:"column:email;not null;uniqueIndex:users_email_key"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}
