package store

import (
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// bsonD builds a single-key sort/index spec, the common case for this
// package's index definitions.
func bsonD(key string, order int) bson.D {
	return bson.D{{Key: key, Value: order}}
}

// IsDuplicateKey reports whether err is a MongoDB duplicate-key error,
// i.e. a unique-index violation.
func IsDuplicateKey(err error) bool {
	return mongo.IsDuplicateKeyError(err)
}
