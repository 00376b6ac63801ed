package comparison

import "testing"

func TestReciprocalIsInvolution(t *testing.T) {
	for _, typ := range All() {
		r := typ.Reciprocal()
		if !r.Valid() {
			t.Errorf("%s: reciprocal %s is unknown", typ, r)
		}
		if r.Reciprocal() != typ {
			t.Errorf("%s: reciprocal of reciprocal = %s", typ, r.Reciprocal())
		}
		if r.Shape() != typ.Shape() {
			t.Errorf("%s: reciprocal %s has a different shape", typ, r)
		}
	}
}

func TestReciprocalTable(t *testing.T) {
	pairs := map[Type]Type{
		Eq: Neq, In: Nin, Gt: Lte, Gte: Lt, Ex: Nex, Sw: Nsw, Ew: New,
		Res: Nres, List: Nlist, Dtp: Ndtp, Lex: Nlex, Lres: Nlres,
	}
	for a, b := range pairs {
		if a.Reciprocal() != b || b.Reciprocal() != a {
			t.Errorf("%s <-> %s not reciprocal", a, b)
		}
	}
	if len(All()) != 2*len(pairs) {
		t.Errorf("All() = %d types, want %d", len(All()), 2*len(pairs))
	}
}

func TestPositivity(t *testing.T) {
	for _, typ := range All() {
		if typ.Shape() == ShapeRange {
			if !typ.IsPositive() {
				t.Errorf("%s: range types match directly", typ)
			}
			continue
		}
		if typ.IsPositive() == typ.Reciprocal().IsPositive() {
			t.Errorf("%s and %s share positivity", typ, typ.Reciprocal())
		}
		if !typ.Positive().IsPositive() {
			t.Errorf("%s: Positive() = %s is negative", typ, typ.Positive())
		}
	}
}

func TestRequiresValue(t *testing.T) {
	for _, typ := range All() {
		want := typ != Ex && typ != Nex && typ != Lex && typ != Nlex
		if typ.RequiresValue() != want {
			t.Errorf("%s: RequiresValue = %v, want %v", typ, typ.RequiresValue(), want)
		}
	}
}

func TestParse(t *testing.T) {
	if typ, ok := Parse("nlres"); !ok || typ != Nlres {
		t.Errorf("Parse(nlres) = %s, %v", typ, ok)
	}
	if _, ok := Parse("near"); ok {
		t.Error("Parse(near) should be unknown")
	}
	if Type("near").Reciprocal() != "near" {
		t.Error("unknown reciprocal should be identity")
	}
}
