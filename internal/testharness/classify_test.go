package testharness

import "testing"

const hardcodedWeeksCode = `
export async function scrape(page): Promise<ExtractedSession[]> {
  const sessions: ExtractedSession[] = [];
  const weeks = [
    { start: "2026-06-15", end: "2026-06-19" },
    { start: "2026-06-22", end: "2026-06-26" },
  ];
  weeks.forEach((week) => {
    sessions.push({ name: "Adventure Camp", startDate: week.start, endDate: week.end });
  });
  return sessions;
}
`

const browserCode = `
export async function scrape(page): Promise<ExtractedSession[]> {
  await page.goto("https://example.com/camps");
  const cards = await page.extract("list every camp session");
  return cards.sessions;
}
`

const generatorCode = `
export async function scrape(page): Promise<ExtractedSession[]> {
  const sessions = [];
  for (const week of generateWeeklySessions("2026-06-15", 10)) {
    sessions.push(week);
  }
  return sessions;
}
`

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		code string
		want Kind
	}{
		{"hardcoded weeks table", hardcodedWeeksCode, KindProgrammatic},
		{"page navigation", browserCode, KindBrowser},
		{"week generator", generatorCode, KindProgrammatic},
		{"empty code defaults to browser", "", KindBrowser},
		{"selectors force browser even with push", `
			const sessions = [];
			document.querySelectorAll(".card").forEach(c => sessions.push(c));
		`, KindBrowser},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.code); got != tt.want {
				t.Fatalf("Classify() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestClassifyIsPure(t *testing.T) {
	for i := 0; i < 3; i++ {
		if got := Classify(hardcodedWeeksCode); got != KindProgrammatic {
			t.Fatalf("run %d: classification changed to %v", i, got)
		}
	}
}
