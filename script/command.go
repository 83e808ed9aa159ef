package script

// Position is a line/column location in the script source, carried by every
// command for diagnostics.
type Position struct {
	Line int
	Col  int
}

func (p Position) Pos() Position { return p }

// Command is one parsed script directive. The set of implementations is
// closed; the driver and the assertion evaluator switch over it
// exhaustively.
type Command interface {
	Pos() Position
	command()
}

// ModuleSource is the raw material of a module definition: either a text
// span (sliced straight from the script source, including the enclosing
// parens) or decoded binary bytes from a (module binary ...) form.
type ModuleSource struct {
	Text   string
	Binary []byte
}

func (s ModuleSource) IsBinary() bool { return s.Binary != nil }

// ActionKind selects between invoking a function export and reading a
// global export.
type ActionKind byte

const (
	ActionInvoke ActionKind = iota
	ActionGet
)

// Action names an export to exercise. Module is the symbolic module
// reference; empty means the most recently defined module.
type Action struct {
	Module string
	Field  string
	Args   []Value
	Kind   ActionKind
}

// ModuleCommand defines, validates and instantiates a module.
type ModuleCommand struct {
	Position
	Name   string
	Source ModuleSource
}

// RegisterCommand binds a module to a name visible to later imports.
// Name refers to an earlier $-named module; empty means the current one.
type RegisterCommand struct {
	Position
	Name string
	As   string
}

// ActionCommand performs an action for its side effects only.
type ActionCommand struct {
	Position
	Action Action
}

// AssertReturnCommand checks an action's results element-wise.
type AssertReturnCommand struct {
	Position
	Action   Action
	Expected []Expected
}

// AssertTrapCommand checks that an action traps with a matching message.
type AssertTrapCommand struct {
	Position
	Action  Action
	Message string
}

// AssertExhaustionCommand checks that an action exhausts an engine
// resource. The message is informational; engines word it differently.
type AssertExhaustionCommand struct {
	Position
	Action  Action
	Message string
}

// AssertMalformedCommand checks that a module source fails to parse or
// decode.
type AssertMalformedCommand struct {
	Position
	Source  ModuleSource
	Message string
}

// AssertInvalidCommand checks that a module fails validation.
type AssertInvalidCommand struct {
	Position
	Source  ModuleSource
	Message string
}

// AssertUnlinkableCommand checks that a module compiles but fails import
// linking.
type AssertUnlinkableCommand struct {
	Position
	Source  ModuleSource
	Message string
}

// AssertUninstantiableCommand checks that a module compiles and links but
// traps during instantiation.
type AssertUninstantiableCommand struct {
	Position
	Source  ModuleSource
	Message string
}

func (ModuleCommand) command()               {}
func (RegisterCommand) command()             {}
func (ActionCommand) command()               {}
func (AssertReturnCommand) command()         {}
func (AssertTrapCommand) command()           {}
func (AssertExhaustionCommand) command()     {}
func (AssertMalformedCommand) command()      {}
func (AssertInvalidCommand) command()        {}
func (AssertUnlinkableCommand) command()     {}
func (AssertUninstantiableCommand) command() {}
