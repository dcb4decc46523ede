package config

import (
	"fmt"
)

type CacheKeyStruct struct{}

func NewCacheKeyStruct() *CacheKeyStruct {
	return &CacheKeyStruct{}
}

// TraineeSessionKey returns the cache key for a trainee's active session
func (r *CacheKeyStruct) TraineeSessionKey(userID int) string {
	return fmt.Sprintf("login:%d", userID)
}

// ExamPayloadKey returns the cache key for a published exam definition
func (r *CacheKeyStruct) ExamPayloadKey(examID string) string {
	return fmt.Sprintf("exam:%s:payload", examID)
}

// ExamProctorChannel returns the Redis PubSub channel for an exam's live proctor feed
func (r *CacheKeyStruct) ExamProctorChannel(examID string) string {
	return fmt.Sprintf("exam:%s:proctor", examID)
}

var CacheKey = NewCacheKeyStruct()
