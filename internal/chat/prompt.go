package chat

import "strings"

// Greeting opens every new conversation before the user has typed anything.
const Greeting = "Hello! I'm your healthcare assistant. What's your name?"

// Apology substitutes for the assistant turn when no reply could be produced.
const Apology = "I'm sorry, I couldn't generate a response. Please try again."

// locationHospitals is the static location-to-hospital lookup embedded into
// the system instruction as text.
var locationHospitals = []struct {
	Location  string
	Hospitals string
}{
	{"Lagos", "Lagos University Teaching Hospital, General Hospital Lagos"},
	{"Abuja", "University of Abuja Teaching Hospital, National Hospital Abuja"},
	{"Covenant University area", "Covenant University Hospital https://maps.app.goo.gl/njSWK8Gj8JPmjv5SA"},
	{"Port Harcourt", "University of Port Harcourt Teaching Hospital"},
	{"Kano", "Aminu Kano Teaching Hospital"},
	{"Ibadan", "University College Hospital Ibadan"},
}

const instructionHeader = `You are a healthcare assistant. Be CONCISE and DIRECT.

INTERACTION FLOW:
1. Ask for name
2. Ask for age
3. Ask for gender
4. Ask for location (city/area)
5. Ask about symptoms/issue
6. Provide brief diagnosis and treatment

RESPONSE FORMAT:
- Keep responses under 3 sentences
- Be direct and professional
- No lengthy explanations
- Focus on essential information only

DIAGNOSIS FORMAT:
- Possible condition: [brief diagnosis]
- First aid: [2-3 key steps]
- Medication: [common treatments]
- See a doctor immediately for proper diagnosis
- Nearby hospitals: [provide 1-2 options based on location]

LOCATION-BASED HOSPITALS:`

const instructionFooter = `
Ask for location to provide specific nearby hospitals.`

// SystemInstruction is the fixed multi-paragraph instruction sent with the
// first turn of every conversation.
func SystemInstruction() string {
	var b strings.Builder
	b.WriteString(instructionHeader)
	for _, h := range locationHospitals {
		b.WriteString("\n- ")
		b.WriteString(h.Location)
		b.WriteString(": ")
		b.WriteString(h.Hospitals)
	}
	b.WriteString("\n")
	b.WriteString(instructionFooter)
	return b.String()
}

// FirstTurnPrompt prefixes the system instruction to the very first user
// prompt; the provider gets it inside the prompt text, not as a separate
// field.
func FirstTurnPrompt(prompt string) string {
	return SystemInstruction() + "\n\nUser: " + prompt
}
