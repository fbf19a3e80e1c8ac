package scene

import "testing"

func TestMaterialRef(t *testing.T) {
	tests := []struct {
		name      string
		ref       MaterialRef
		wantIndex int
		indexOK   bool
		wantName  string
		nameOK    bool
	}{
		{name: "zero value is the default slot", ref: MaterialRef{}, wantIndex: 0, indexOK: true},
		{name: "index reference", ref: MaterialIndex(3), wantIndex: 3, indexOK: true},
		{name: "name reference", ref: MaterialName("gold"), wantName: "gold", nameOK: true},
		{name: "empty name is neither", ref: MaterialName("")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			idx, ok := tt.ref.Index()
			if ok != tt.indexOK || (ok && idx != tt.wantIndex) {
				t.Errorf("Index() = (%d, %v), want (%d, %v)", idx, ok, tt.wantIndex, tt.indexOK)
			}
			name, ok := tt.ref.Name()
			if ok != tt.nameOK || (ok && name != tt.wantName) {
				t.Errorf("Name() = (%q, %v), want (%q, %v)", name, ok, tt.wantName, tt.nameOK)
			}
		})
	}
}
