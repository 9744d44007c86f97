package websocket

import (
	"strings"
	"unicode/utf8"
)

const (
	addTaskPrefix = "add_task:"

	// titlePadding leaves room for whitespace around a title, which Create trims.
	titlePadding = 256
)

type CommandKind int

const (
	// CommandMessage is free text to be rebroadcast to every client.
	CommandMessage CommandKind = iota
	// CommandAddTask asks the server to create a task.
	CommandAddTask
)

// Command is one parsed inbound text frame.
type Command struct {
	Kind CommandKind
	Body string
}

func ParseCommand(text string) Command {
	if title, ok := strings.CutPrefix(text, addTaskPrefix); ok {
		return Command{Kind: CommandAddTask, Body: title}
	}
	return Command{Kind: CommandMessage, Body: text}
}

// ReadLimitFor returns a frame limit large enough for any add_task command
// whose title is within maxTitleLength runes.
func ReadLimitFor(maxTitleLength int) int64 {
	limit := int64(len(addTaskPrefix) + utf8.UTFMax*maxTitleLength + titlePadding)
	return max(limit, defaultReadLimit)
}
