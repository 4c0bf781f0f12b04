package alias_test

import (
	"reflect"
	"testing"

	"github.com/DMarby/stockphotos/internal/alias"
)

func TestParse(t *testing.T) {
	tests := []struct {
		Name        string
		Data        string
		Expected    alias.Map
		ExpectError bool
	}{
		{"yaml", "dentist: health-teeth\nbakery: food-bread\n", alias.Map{"dentist": "health-teeth", "bakery": "food-bread"}, false},
		{"json", `{"dentist": "health-teeth"}`, alias.Map{"dentist": "health-teeth"}, false},
		{"empty", "", alias.Map{}, false},
		{"not a mapping", "- dentist\n- bakery\n", nil, true},
	}

	for _, test := range tests {
		m, err := alias.Parse([]byte(test.Data))
		if test.ExpectError {
			if err == nil {
				t.Errorf("%s: no error", test.Name)
			}
			continue
		}

		if err != nil {
			t.Errorf("%s: %s", test.Name, err)
			continue
		}

		if !reflect.DeepEqual(m, test.Expected) {
			t.Errorf("%s: wrong table %#v", test.Name, m)
		}
	}
}

func TestLookup(t *testing.T) {
	m := alias.Map{"dentist": "health-teeth", "blank": ""}

	if id, ok := m.Lookup("dentist"); !ok || id != "health-teeth" {
		t.Errorf("wrong lookup %q %t", id, ok)
	}

	if _, ok := m.Lookup("blank"); ok {
		t.Error("blank alias found")
	}

	if _, ok := m.Lookup("zzz"); ok {
		t.Error("unknown alias found")
	}

	var empty alias.Map
	if _, ok := empty.Lookup("dentist"); ok {
		t.Error("nil table found alias")
	}
}
