package service

import "errors"

var (
	ErrSessionNotFound      = errors.New("session not found")
	ErrSessionAlreadyExists = errors.New("session already exists")
	ErrTopicNotFound        = errors.New("topic not found")
	ErrInvalidTopic         = errors.New("invalid topic")
)
