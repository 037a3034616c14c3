package commands

import "fmt"

type Result struct {
	Message string
}

type Handlers struct {
	Add    func(AddArgs) (Result, error)
	Depend func(DependArgs) (Result, error)
	Done   func(DoneArgs) (Result, error)
	Remind func(RemindArgs) (Result, error)
	Snooze func(SnoozeArgs) (Result, error)
	Ack    func(AckArgs) (Result, error)
	Show   func(ShowArgs) (Result, error)
}

func missing(name string) error {
	return &CommandError{Code: ErrCodeHandlerMissing, Message: name + " handler not configured"}
}

func Execute(cmd Command, handlers Handlers) (Result, error) {
	switch cmd.Type {
	case TypeAdd:
		if handlers.Add == nil {
			return Result{}, missing("add")
		}
		return handlers.Add(*cmd.Add)
	case TypeDepend:
		if handlers.Depend == nil {
			return Result{}, missing("depend")
		}
		return handlers.Depend(*cmd.Depend)
	case TypeDone:
		if handlers.Done == nil {
			return Result{}, missing("done")
		}
		return handlers.Done(*cmd.Done)
	case TypeRemind:
		if handlers.Remind == nil {
			return Result{}, missing("remind")
		}
		return handlers.Remind(*cmd.Remind)
	case TypeSnooze:
		if handlers.Snooze == nil {
			return Result{}, missing("snooze")
		}
		return handlers.Snooze(*cmd.Snooze)
	case TypeAck:
		if handlers.Ack == nil {
			return Result{}, missing("ack")
		}
		return handlers.Ack(*cmd.Ack)
	case TypeShow:
		if handlers.Show == nil {
			return Result{}, missing("show")
		}
		return handlers.Show(*cmd.Show)
	default:
		return Result{}, &CommandError{Code: ErrCodeUnknownCommand, Message: fmt.Sprintf("unknown command type: %s", cmd.Type)}
	}
}
