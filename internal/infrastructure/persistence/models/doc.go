// Package models contains GORM persistence models that map to database tables.
// They are kept apart from the domain types so the domain layer stays free of
// ORM tags; each model converts with ToDomain / FromDomain.
//
// JSON valued columns (product tags, images, platform data and activity
// details) are stored as text here and declared jsonb in the postgres
// migrations.
package models
