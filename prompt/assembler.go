// Package prompt builds the system instructions sent to the generative
// model. Every function here is pure: same input, same output.
package prompt

import (
	"fmt"
	"strings"
)

// Section headers. A section is emitted only when it has content.
const (
	TemplateSectionHeader   = "Template Context:"
	DraftContextHeader      = "Reference Context from Successful Petitions:"
	ChatContextHeader       = "Reference Context:"
	DefaultCriterion        = "General"
	DefaultFirmName         = "Visar"
	templateSeparator       = "\n\n"
	draftClosingInstruction = "Generate a high-quality petition section based on the user's request."
	chatClosingInstruction  = "Provide helpful, professional advice and draft petition content as needed."
)

var draftStyle = []string{
	"Professional and persuasive",
	"Evidence-backed and detailed",
	"Aligned with USCIS requirements",
	"Clear and compelling",
}

// Assembler carries the firm name used in persona statements.
type Assembler struct {
	FirmName string
}

// New returns an assembler for firmName, defaulting to DefaultFirmName
func New(firmName string) Assembler {
	if strings.TrimSpace(firmName) == "" {
		firmName = DefaultFirmName
	}
	return Assembler{FirmName: firmName}
}

// DraftInput is everything a one-shot petition draft prompt depends on
type DraftInput struct {
	ClientName string
	CaseType   string
	Criterion  string
	Templates  []string
	Context    string
	Request    string
}

// ChatInput is everything a chat-turn prompt depends on
type ChatInput struct {
	ClientName string
	CaseType   string
	Context    string
}

// Draft assembles the draft-mode instruction in fixed order: persona, case
// metadata, templates, retrieved context, final instruction.
func (a Assembler) Draft(in DraftInput) string {
	var b strings.Builder

	fmt.Fprintf(&b, "You are an expert immigration petition writer for %s, specializing in %s visas.\n\n", a.firmName(), in.CaseType)
	b.WriteString("Your writing style is:\n")
	for _, s := range draftStyle {
		fmt.Fprintf(&b, "- %s\n", s)
	}
	b.WriteString("\n")

	criterion := strings.TrimSpace(in.Criterion)
	if criterion == "" {
		criterion = DefaultCriterion
	}
	fmt.Fprintf(&b, "Client: %s\nVisa Type: %s\nCriterion: %s\n\n", in.ClientName, in.CaseType, criterion)

	if templates := joinTemplates(in.Templates); templates != "" {
		writeSection(&b, TemplateSectionHeader, templates)
	}
	if strings.TrimSpace(in.Context) != "" {
		writeSection(&b, DraftContextHeader, in.Context)
	}

	b.WriteString(draftClosingInstruction)
	if req := strings.TrimSpace(in.Request); req != "" {
		fmt.Fprintf(&b, "\n\nUser request:\n%s", req)
	}
	return b.String()
}

// Chat assembles the chat-mode instruction: persona, case metadata,
// retrieved context, closing instruction. Prior turns travel separately as
// generator history.
func (a Assembler) Chat(in ChatInput) string {
	var b strings.Builder

	fmt.Fprintf(&b, "You are an expert immigration petition assistant for %s, helping with %s visa petitions.\n\n", a.firmName(), in.CaseType)
	fmt.Fprintf(&b, "Client: %s\nVisa Type: %s\n\n", in.ClientName, in.CaseType)

	if strings.TrimSpace(in.Context) != "" {
		writeSection(&b, ChatContextHeader, in.Context)
	}

	b.WriteString(chatClosingInstruction)
	return b.String()
}

func (a Assembler) firmName() string {
	if a.FirmName == "" {
		return DefaultFirmName
	}
	return a.FirmName
}

func writeSection(b *strings.Builder, header, body string) {
	b.WriteString(header)
	b.WriteString("\n")
	b.WriteString(body)
	b.WriteString("\n\n")
}

// joinTemplates drops blank templates so an all-blank set yields no section
func joinTemplates(templates []string) string {
	var parts []string
	for _, t := range templates {
		if strings.TrimSpace(t) != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, templateSeparator)
}
