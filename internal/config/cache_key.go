package config

import (
	"fmt"
)

type CacheKeyStruct struct{}

func NewCacheKeyStruct() *CacheKeyStruct {
	return &CacheKeyStruct{}
}

// ExamSpecKey returns the cache key for an exam's full spec (answer key included).
func (r *CacheKeyStruct) ExamSpecKey(examID string) string {
	return fmt.Sprintf("exam:%s:spec", examID)
}

// ExamResultsChannel returns the Redis PubSub channel name for accepted submissions of an exam
func (r *CacheKeyStruct) ExamResultsChannel(examID string) string {
	return fmt.Sprintf("exam:%s:results", examID)
}

var CacheKey = NewCacheKeyStruct()
