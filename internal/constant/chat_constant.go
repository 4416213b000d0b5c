package constant

const (
	// Reset commands recognized at the start of a turn, before
	// classification.
	ResetCommandFull  = "start over"
	ResetCommandSlots = "clear my details"

	// Composer placeholders steering what the client input hints at.
	PlaceholderDefault    = "Describe the condition or ask a nutrition question..."
	PlaceholderAwaiting   = "Type your answer..."
	PlaceholderConfirming = "Reply 'yes' to generate the plan, or correct any detail..."

	MsgSessionReset = "Okay, starting fresh. What would you like help with?"
	MsgSlotsCleared = "I've cleared the collected details. The conversation continues from here."

	MsgOnboardingIntro = "To build a safe therapy plan I need a few details (medications, lab results, age, weight). How would you like to provide them?\n" +
		"1. Upload a lab report or prescription\n" +
		"2. Answer questions step by step\n" +
		"3. Get general information first, details later"

	MsgDowngradeNotice = "I don't have enough clinical detail for a full therapy plan yet, so here is general guidance instead. " +
		"Share your medications and recent lab results any time to unlock the full plan."

	// The list of covered conditions is appended from the registry so the
	// copy never drifts from what the pipeline actually supports.
	MsgUnsupportedCondition = "I don't have clinical guidelines for that condition yet, so I'll keep to general healthy-eating guidance."

	MsgFatalBaseline = "I couldn't compute baseline nutritional requirements from the details provided, so I can't continue with a plan. " +
		"Please check the age, weight and height values."

	MsgRetryGeneric = "Sorry, I didn't catch that."
	MsgMaxRetries   = "Let's move on; we can come back to this later."
)
