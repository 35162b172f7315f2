package policy

import "testing"

func TestResolveMatrix(t *testing.T) {
	order := OrderRef{ProjectID: 10, VendorID: 7}

	cases := []struct {
		name  string
		actor Actor
		want  Access
	}{
		{"owner full access", Owner(1), Access{Read: true, Write: true}},
		{"assigned employee", Employee(2, 10), Access{Read: true, Write: true}},
		{"assigned employee among many", Employee(2, 3, 10, 12), Access{Read: true, Write: true}},
		{"unassigned employee", Employee(2, 11), Access{}},
		{"order vendor", Vendor(7), Access{Read: true, Write: true}},
		{"other vendor", Vendor(8), Access{}},
		{"project client read only", Client(3, 10), Access{Read: true}},
		{"other client", Client(3, 11), Access{}},
		{"zero actor", Actor{}, Access{}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Resolve(tc.actor, order)
			if got != tc.want {
				t.Fatalf("Resolve(%+v) = %+v, want %+v", tc.actor, got, tc.want)
			}
		})
	}
}

func TestConvenienceWrappers(t *testing.T) {
	order := OrderRef{ProjectID: 1, VendorID: 2}
	if !CanRead(Client(9, 1), order) {
		t.Fatal("client on project should read")
	}
	if CanWrite(Client(9, 1), order) {
		t.Fatal("client must never write")
	}
	if !CanWrite(Vendor(2), order) {
		t.Fatal("order vendor should write")
	}
}
