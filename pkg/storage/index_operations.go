package storage

import "fmt"

// CreateIndex creates an equality index on a field of a class
func (se *StorageEngine) CreateIndex(className, fieldName string) error {
	if className == "" || fieldName == "" {
		return fmt.Errorf("class and field names are required")
	}
	coll := se.getCollection(className, true)
	coll.mu.RLock()
	defer coll.mu.RUnlock()
	return se.indexEngine.CreateIndex(className, fieldName, coll.docs)
}

// DropIndex removes an index from a class
func (se *StorageEngine) DropIndex(className, fieldName string) error {
	return se.indexEngine.DropIndex(className, fieldName)
}

// GetIndexes returns the indexed fields of a class
func (se *StorageEngine) GetIndexes(className string) []string {
	return se.indexEngine.GetIndexes(className)
}
