package interaction

// Classifier decides whether an interaction should surface its thread in the
// inbox and count as the thread's most recent interaction.
type Classifier interface {
	IsInboxAppearing(i Interaction) bool
}

type ClassifierFunc func(i Interaction) bool

func (f ClassifierFunc) IsInboxAppearing(i Interaction) bool {
	return f(i)
}

// DefaultClassifier hides typing indicators, placeholders and anything the
// interaction layer explicitly flagged as hidden.
type DefaultClassifier struct{}

func (DefaultClassifier) IsInboxAppearing(i Interaction) bool {
	if i.HiddenFromInbox {
		return false
	}
	switch i.Kind {
	case KindTypingIndicator, KindThreadDetailsPlaceholder:
		return false
	}
	return i.Kind.Valid()
}
