package analyzer

import (
	"testing"

	"github.com/ludo-technologies/ucover/domain"
	"github.com/ludo-technologies/ucover/internal/testutil"
)

func TestDeriveLegacySectionsAgrees(t *testing.T) {
	bodies := allBodies()[:3]
	bodies = append(bodies, testutil.UsingBody())

	for _, body := range bodies {
		t.Run(body.Name, func(t *testing.T) {
			analysis, err := AnalyzeMethod(body, nil)
			testutil.AssertNoError(t, err)

			legacy, err := DeriveLegacySections(analysis.Method.Conditions, body.Instructions, analysis.Regions)
			testutil.AssertNoError(t, err)

			if !SectionsAgree(legacy, analysis.Method.Sections) {
				t.Errorf("legacy sections %v differ from %v", spansOf(legacy), spansOf(analysis.Method.Sections))
			}
		})
	}
}

func TestDeriveLegacySectionsDisagreesOnSwitch(t *testing.T) {
	body := testutil.SwitchBody()
	method, err := BuildMethod(body, nil)
	testutil.AssertNoError(t, err)

	legacy, err := DeriveLegacySections(method.Conditions, body.Instructions, nil)
	testutil.AssertNoError(t, err)

	if SectionsAgree(legacy, method.Sections) {
		t.Error("unconditional jumps out of switch cases are invisible to the legacy derivation")
	}
}

func TestDeriveLegacySectionsMismatch(t *testing.T) {
	instrs := testutil.Body("m",
		testutil.Instr(0, "ldarg.0"),
		testutil.Instr(2, "brtrue.s", 6),
		testutil.Instr(4, "nop"),
		testutil.Instr(6, "ret"),
	).Instructions
	conditions := []domain.Condition{
		{StartOffset: 2, EndOffset: 4},
		{StartOffset: 2, EndOffset: 6},
	}

	_, err := DeriveLegacySections(conditions, instrs, nil)
	if !domain.IsInvalidOperation(err) {
		t.Errorf("expected invalid operation for unbalanced offsets, got %v", err)
	}
}

func TestDeriveLegacySectionsEmpty(t *testing.T) {
	if _, err := DeriveLegacySections(nil, nil, nil); err == nil {
		t.Error("expected error for an empty body")
	}
}
