// Package tool declares the callable capabilities exposed to the model and
// validates the arguments the model supplies for them.
//
// One capability is registered: task.manage, a unified task-management
// function with a closed action enum. Raw argument maps from the provider
// are validated eagerly into a typed shape here; untyped maps never reach
// the executor.
package tool

import (
	"github.com/google/jsonschema-go/jsonschema"

	"github.com/lexa0/lexa/internal/provider"
)

// ManageTaskName is the tool name declared to the model.
const ManageTaskName = "task.manage"

// manageTaskDescription is the natural-language contract for task.manage.
// The wording steers the model away from inventing task identifiers and
// tells it to stop after undescriptive errors.
const manageTaskDescription = "Unified task management function for personal tasks. " +
	"Use this tool to create, update, delete, or list tasks. " +
	"Choose the appropriate action based on the user's intent. " +
	"Do NOT invent or guess any task IDs. " +
	"Tasks must be identified using natural language descriptions provided by the user. " +
	"The backend will resolve the correct task internally.\n\n" +
	"For update or delete actions, extract a short descriptive phrase that uniquely " +
	"identifies the task (for example: 'finish the report', 'submit assignment'). " +
	"If multiple tasks could match, ask the user to be more specific.\n\n" +
	"For create actions, generate a concise title and optional description. " +
	"For list actions, extract a short keyword for search if the user is looking for something specific. " +
	"Use this tool for requests such as:\n" +
	"- 'Create a task to finish the report by Friday'\n" +
	"- 'Mark the task about project documentation as done'\n" +
	"- 'Delete the task related to exam prep'\n" +
	"- 'List my tasks for this conversation'\n\n" +
	"If the tool returns more information than the user explicitly asked for, " +
	"summarize the relevant parts clearly. " +
	"If you encounter an error when using this tool, and the error is not descriptive " +
	"enough for you to solve the issue, STOP, do not use the tool again, and tell the " +
	"user to try again later."

// Declarations returns the tool declarations sent with every provider
// request.
func Declarations() []provider.Declaration {
	return []provider.Declaration{manageTaskDeclaration()}
}

func manageTaskDeclaration() provider.Declaration {
	return provider.Declaration{
		Name:        ManageTaskName,
		Description: manageTaskDescription,
		Parameters: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"action": {
					Type:        "string",
					Enum:        []any{"create", "update", "delete", "list"},
					Description: "The task operation to perform. Choose based on user intent.",
				},
				"query": {
					Type:        "string",
					Description: "Short natural language description used to identify an existing task.",
				},
				"title": {
					Type:        "string",
					Description: "Title for a new task or updated title for an existing task.",
				},
				"description": {
					Type:        "string",
					Description: "Optional longer description for a task.",
				},
				"status": {
					Type:        "string",
					Enum:        []any{"todo", "in_progress", "done"},
					Description: "New status for the task when updating.",
				},
			},
			Required: []string{"action"},
		},
	}
}
