package utils

import (
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

// GenerateNanoIDWithPrefix builds ids like "batch_x7f29ak3m1q0".
func GenerateNanoIDWithPrefix(prefix string, length int) string {
	alphabet := "abcdefghijklmnopqrstuvwxyz0123456789"
	id, err := gonanoid.Generate(alphabet, length)
	if err != nil {
		panic(err)
	}
	return prefix + "_" + id
}

func Now() time.Time {
	return time.Now().UTC()
}
