package prompt

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDraft_OmitsEmptySections(t *testing.T) {
	out := New("").Draft(DraftInput{
		ClientName: "Dr. Ana Rivera",
		CaseType:   "EB-1A",
		Request:    "Draft the awards section",
	})

	assert.NotContains(t, out, TemplateSectionHeader)
	assert.NotContains(t, out, DraftContextHeader)
	assert.Contains(t, out, "You are an expert immigration petition writer for Visar, specializing in EB-1A visas.")
	assert.Contains(t, out, "Client: Dr. Ana Rivera\nVisa Type: EB-1A\nCriterion: General")
	assert.Contains(t, out, "Generate a high-quality petition section based on the user's request.")
	assert.True(t, strings.HasSuffix(out, "User request:\nDraft the awards section"))
}

func TestDraft_BlankTemplatesAndContextAreOmitted(t *testing.T) {
	out := New("Visar").Draft(DraftInput{
		CaseType:  "O-1A",
		Templates: []string{"", "   "},
		Context:   "\n\n",
	})

	assert.NotContains(t, out, TemplateSectionHeader)
	assert.NotContains(t, out, DraftContextHeader)
}

func TestDraft_SectionOrder(t *testing.T) {
	out := New("Acme Immigration").Draft(DraftInput{
		ClientName: "Dr. Ana Rivera",
		CaseType:   "EB-1A",
		Criterion:  "awards",
		Templates:  []string{"Template A", "Template B"},
		Context:    "Patent X award 2019",
		Request:    "Draft the awards section",
	})

	persona := strings.Index(out, "for Acme Immigration, specializing in EB-1A")
	metadata := strings.Index(out, "Criterion: awards")
	templates := strings.Index(out, TemplateSectionHeader+"\nTemplate A\n\nTemplate B")
	context := strings.Index(out, DraftContextHeader+"\nPatent X award 2019")
	instruction := strings.Index(out, "Generate a high-quality petition section")

	for name, pos := range map[string]int{
		"persona": persona, "metadata": metadata, "templates": templates,
		"context": context, "instruction": instruction,
	} {
		assert.GreaterOrEqual(t, pos, 0, name)
	}
	assert.Less(t, persona, metadata)
	assert.Less(t, metadata, templates)
	assert.Less(t, templates, context)
	assert.Less(t, context, instruction)
}

func TestDraft_IsPure(t *testing.T) {
	in := DraftInput{ClientName: "A", CaseType: "EB-1A", Templates: []string{"T"}, Context: "C", Request: "R"}
	a := New("Visar")
	assert.Equal(t, a.Draft(in), a.Draft(in))
}

func TestChat_WithAndWithoutContext(t *testing.T) {
	a := New("Visar")

	bare := a.Chat(ChatInput{ClientName: "Dr. Ana Rivera", CaseType: "O-1A"})
	assert.NotContains(t, bare, ChatContextHeader)
	assert.Equal(t,
		"You are an expert immigration petition assistant for Visar, helping with O-1A visa petitions.\n\n"+
			"Client: Dr. Ana Rivera\nVisa Type: O-1A\n\n"+
			"Provide helpful, professional advice and draft petition content as needed.",
		bare)

	withContext := a.Chat(ChatInput{ClientName: "Dr. Ana Rivera", CaseType: "O-1A", Context: "Judged IEEE awards"})
	assert.Contains(t, withContext, ChatContextHeader+"\nJudged IEEE awards\n\n")
	assert.Less(t, strings.Index(withContext, "Visa Type"), strings.Index(withContext, ChatContextHeader))
}
