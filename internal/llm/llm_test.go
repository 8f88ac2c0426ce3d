package llm

import (
	"strings"
	"testing"
)

func TestParseJSONFieldsWholeString(t *testing.T) {
	fields, err := parseJSONFields(`{"email":"hi@example.com","phone":"503-555-0100"}`)
	if err != nil {
		t.Fatal(err)
	}
	if fields["email"] != "hi@example.com" {
		t.Fatalf("fields = %v", fields)
	}
}

func TestParseJSONFieldsEmbeddedBlock(t *testing.T) {
	content := "Sure, here is the extraction:\n```json\n{\"siteType\": \"single_list\"}\n```\nLet me know if you need more."
	fields, err := parseJSONFields(content)
	if err != nil {
		t.Fatal(err)
	}
	if fields["siteType"] != "single_list" {
		t.Fatalf("fields = %v", fields)
	}
}

func TestParseJSONFieldsNoObject(t *testing.T) {
	if _, err := parseJSONFields("there is no json here"); err == nil {
		t.Fatalf("expected error")
	}
}

func TestToResultLenient(t *testing.T) {
	res, err := toResult("not json at all", false)
	if err != nil {
		t.Fatal(err)
	}
	if res.Fields["_raw"] != "not json at all" {
		t.Fatalf("lenient parse should keep raw content, got %v", res.Fields)
	}
}

func TestToResultStrict(t *testing.T) {
	if _, err := toResult("not json at all", true); err == nil {
		t.Fatalf("strict parse should fail on non-JSON content")
	}
}

func TestBuildUserContent(t *testing.T) {
	content := buildUserContent(ExtractRequest{
		URL:         "https://example.com",
		Content:     "# Camps\nWeek 1",
		Instruction: "Classify the site.",
		Fields:      []FieldSpec{{Name: "siteType", Type: "string", Description: "site layout"}},
	})

	if !strings.HasPrefix(content, "Classify the site.") {
		t.Fatalf("instruction should lead the prompt")
	}
	for _, needle := range []string{"https://example.com", "siteType", "# Camps"} {
		if !strings.Contains(content, needle) {
			t.Fatalf("prompt missing %q", needle)
		}
	}
}
