package main

import "fmt"

// ArgumentError reports a command-line flag used incorrectly. Message is a
// template with one %s verb that receives the offending flag.
type ArgumentError struct {
	Flag    string
	Message string
}

func (e *ArgumentError) Error() string {
	return fmt.Sprintf(e.Message, e.Flag)
}

// NewArgumentError builds an ArgumentError for the given flag.
func NewArgumentError(flag, message string) *ArgumentError {
	return &ArgumentError{Flag: flag, Message: message}
}
