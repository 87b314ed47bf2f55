package domain

// KeyPrefix namespaces every key the service writes to the store.
const KeyPrefix = "prodrag:"

// CollectionKeyPrefix is the key prefix of records in a collection, e.g. "prodrag:products:".
func CollectionKeyPrefix(collection string) string {
	return KeyPrefix + collection + ":"
}

// RecordKey is the storage key of a record.
func RecordKey(collection, id string) string {
	return CollectionKeyPrefix(collection) + id
}

// IndexName is the search index name of a collection, e.g. "prodrag:products:idx".
func IndexName(collection string) string {
	return CollectionKeyPrefix(collection) + "idx"
}
