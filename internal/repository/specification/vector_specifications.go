package specification

import "gorm.io/gorm"

type ByCollection struct {
	Name string
}

func (s ByCollection) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("collection_name = ?", s.Name)
}

// ByDimension keeps records whose vectors can be compared with a query of the same size.
type ByDimension struct {
	Dimension int
}

func (s ByDimension) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("dimension = ?", s.Dimension)
}
