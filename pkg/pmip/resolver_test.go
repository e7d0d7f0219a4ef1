package pmip

import (
	"errors"
	"strconv"
	"testing"
)

type addressCase struct {
	addr string
	want string
}

func assertResolves(t *testing.T, r *Resolver, cases []addressCase) {
	t.Helper()
	for _, tc := range cases {
		addr, err := strconv.ParseUint(tc.addr, 16, 64)
		if err != nil {
			t.Fatalf("bad test address %s: %v", tc.addr, err)
		}
		got, ok, err := r.Resolve(addr)
		if err != nil {
			t.Fatalf("Resolve(%s) error: %v", tc.addr, err)
		}
		if !ok {
			t.Errorf("Couldn't find address: %s", tc.addr)
			continue
		}
		if got != tc.want {
			t.Errorf("Resolve(%s) = %q, want %q", tc.addr, got, tc.want)
		}
	}
}

func TestResolveSingleLine(t *testing.T) {
	path := writeSideFile(t, t.TempDir(), "pmip_1_1.txt", "version:2.0\n000001C44A1C81D7;000001C44A1C81F0;[Mod.dll] Foo:Bar ()\n")
	r := NewResolver()
	defer func() {
		_ = r.Reset()
	}()
	if err := r.RegisterFile(path); err != nil {
		t.Fatalf("RegisterFile error: %v", err)
	}

	got, ok, err := r.Resolve(0x000001C44A1C81D7)
	if err != nil || !ok || got != "[Mod.dll] Foo:Bar ()" {
		t.Errorf("Resolve(start) = %q, %v, %v", got, ok, err)
	}
	if _, ok, err := r.Resolve(0x000001C44A1C81F0); ok || err != nil {
		t.Errorf("Resolve(end) should miss, got ok=%v err=%v", ok, err)
	}
	if _, ok, _ := r.Resolve(0x000001C44A1C81D6); ok {
		t.Error("Resolve(below) should miss")
	}
	if _, ok, _ := r.Resolve(^uint64(0)); ok {
		t.Error("Resolve(max) should miss")
	}
}

func TestResolveLegacyData(t *testing.T) {
	r := NewResolver()
	defer func() {
		_ = r.Reset()
	}()
	if err := r.RegisterFile("testdata/legacy-data/pmip_32260_3.txt"); err != nil {
		t.Fatalf("RegisterFile error: %v", err)
	}
	assertResolves(t, r, []addressCase{
		{"000001C44A1C81D7", "[UnityEditor.CoreModule.dll] (wrapper managed-to-native) UnityEditor.EditorGUIUtility:RenderPlayModeViewCamerasInternal_Injected (UnityEngine.RenderTexture,int,UnityEngine.Vector2&,bool,bool)"},
		{"000001C44A1C8083", "[UnityEditor.CoreModule.dll] UnityEditor.EditorGUIUtility:RenderPlayModeViewCamerasInternal (UnityEngine.RenderTexture,int,UnityEngine.Vector2,bool,bool)"},
		{"000001C44A1C52EB", "[UnityEditor.CoreModule.dll] UnityEditor.PlayModeView:RenderView (UnityEngine.Vector2,bool)"},
		{"000001C449F19A23", "[UnityEditor.CoreModule.dll] UnityEditor.GameView:OnGUI ()"},
		{"000001C449F12BF8", "[UnityEditor.CoreModule.dll] UnityEditor.HostView:InvokeOnGUI (UnityEngine.Rect)"},
		{"000001C449F12793", "[UnityEditor.CoreModule.dll] UnityEditor.DockArea:DrawView (UnityEngine.Rect)"},
		{"000001C449EF1353", "[UnityEditor.CoreModule.dll] UnityEditor.DockArea:OldOnGUI ()"},
		{"000001C449EBCCE9", "[UnityEngine.UIElementsModule.dll] UnityEngine.UIElements.IMGUIContainer:DoOnGUI (UnityEngine.Event,UnityEngine.Matrix4x4,UnityEngine.Rect,bool,UnityEngine.Rect,System.Action,bool)"},
		{"000001C449EBAC13", "[UnityEngine.UIElementsModule.dll] UnityEngine.UIElements.IMGUIContainer:HandleIMGUIEvent (UnityEngine.Event,UnityEngine.Matrix4x4,UnityEngine.Rect,System.Action,bool)"},
		{"000001C44A300120", "[UnityEngine.CoreModule.dll] UnityEngine.GUIUtility:BeginGUI (int,int,int)"},
	})
}

func TestResolveLegacyMode(t *testing.T) {
	r := NewResolver()
	defer func() {
		_ = r.Reset()
	}()
	if err := r.RegisterFile("testdata/legacy-mode/pmip_31964_3.txt"); err != nil {
		t.Fatalf("RegisterFile error: %v", err)
	}
	assertResolves(t, r, []addressCase{
		{"000001C4F5DC03FF", "[Assembly-CSharp.dll] SpinMe:FooBar ()"},
		{"000001C4F5DC02D3", "[Assembly-CSharp.dll] SpinMe:Foo ()"},
		{"000001C4F5DBF6F3", "[Assembly-CSharp.dll] SpinMe:Update ()"},
		{"000001C3FF868578", "[mscorlib.dll] (wrapper runtime-invoke) object:runtime_invoke_void__this__ (object,intptr,intptr,intptr)"},
	})
}

func TestResolveLineNumbers(t *testing.T) {
	r := NewResolver()
	defer func() {
		_ = r.Reset()
	}()
	for _, path := range []string{
		"testdata/line-numbers/pmip_23672_1_0.txt",
		"testdata/line-numbers/pmip_23672_4_1.txt",
	} {
		if err := r.RegisterFile(path); err != nil {
			t.Fatalf("RegisterFile(%s) error: %v", path, err)
		}
	}
	assertResolves(t, r, []addressCase{
		{"00000244C7A990BF", "[Assembly-CSharp.dll] SpinMe:FooBar ()"},
		{"00000244C7A98F93", "[Assembly-CSharp.dll] SpinMe:Foo () : 32"},
		{"00000244C7A98153", "[Assembly-CSharp.dll] SpinMe:Update () : 26"},
		{"00000244EC9DF6B8", "[mscorlib.dll] (wrapper runtime-invoke) object:runtime_invoke_void__this__ (object,intptr,intptr,intptr)"},
	})

	iv, ok, err := r.Lookup(0x00000244C7A98F93)
	if err != nil || !ok {
		t.Fatalf("Lookup error = %v, ok = %v", err, ok)
	}
	if iv.File != "Assets/SpinMe.cs" {
		t.Errorf("Lookup().File = %q, want Assets/SpinMe.cs", iv.File)
	}
}

func TestResolvePrefersCurrentOverLegacy(t *testing.T) {
	path := writeSideFile(t, t.TempDir(), "pmip_1_1.txt",
		"version:2.0\n---100;200;legacy wide\n100;150;current narrow\n")
	r := NewResolver()
	if err := r.RegisterFile(path); err != nil {
		t.Fatalf("RegisterFile error: %v", err)
	}
	assertResolves(t, r, []addressCase{
		{"100", "current narrow"},
		{"14f", "current narrow"},
		{"150", "legacy wide"},
		{"1ff", "legacy wide"},
	})
	if _, ok, _ := r.Resolve(0x200); ok {
		t.Error("Resolve(0x200) should miss both indexes")
	}
}

func TestResolveSeesAppendedLinesOnce(t *testing.T) {
	path := writeSideFile(t, t.TempDir(), "pmip_1_1.txt", "version:2.0\n1000;1010;a\n")
	r := NewResolver()
	if err := r.RegisterFile(path); err != nil {
		t.Fatalf("RegisterFile error: %v", err)
	}
	if _, ok, _ := r.Resolve(0x2000); ok {
		t.Fatal("address resolved before it was written")
	}

	appendSideFile(t, path, "2000;2010;b\n")
	assertResolves(t, r, []addressCase{{"2000", "b"}, {"1000", "a"}})
	assertResolves(t, r, []addressCase{{"2005", "b"}})

	if got := r.Stats().Current; got != 2 {
		t.Errorf("Stats().Current = %d, want 2", got)
	}
}

func TestResolveAfterFatalRefresh(t *testing.T) {
	path := writeSideFile(t, t.TempDir(), "pmip_1_1.txt", "version:2.0\n1000;1010;a\n")
	r := NewResolver()
	if err := r.RegisterFile(path); err != nil {
		t.Fatalf("RegisterFile error: %v", err)
	}
	appendSideFile(t, path, "2000;gggg;broken\n")

	_, ok, err := r.Resolve(0x1000)
	if ok {
		t.Error("Resolve should not report a hit when refresh fails")
	}
	if !errors.Is(err, ErrInvalidAddress) {
		t.Errorf("Resolve error = %v, want ErrInvalidAddress", err)
	}
	if len(r.Paths()) != 0 {
		t.Errorf("Paths() after failure = %v", r.Paths())
	}

	// nothing tracked any more: a plain miss
	if _, ok, err := r.Resolve(0x1000); ok || err != nil {
		t.Errorf("second Resolve = ok %v, err %v; want miss without error", ok, err)
	}
}

func TestResolveRejectsNewerVersion(t *testing.T) {
	path := writeSideFile(t, t.TempDir(), "pmip_1_1.txt", "version:3.0\n1000;1010;a\n---2000;2010;b\n")
	r := NewResolver()
	err := r.RegisterFile(path)
	if !errors.Is(err, ErrUnsupportedVersion) {
		t.Fatalf("RegisterFile error = %v, want ErrUnsupportedVersion", err)
	}
	for _, addr := range []uint64{0x1000, 0x2000} {
		if _, ok, _ := r.Resolve(addr); ok {
			t.Errorf("Resolve(%#x) found an entry from a rejected file", addr)
		}
	}
	if stats := r.Stats(); stats.Current != 0 || stats.Legacy != 0 {
		t.Errorf("Stats() = %+v, want empty indexes", stats)
	}
}

func TestResolveFlushedLastLine(t *testing.T) {
	path := writeSideFile(t, t.TempDir(), "pmip_1_1.txt", "version:2.0\n1000;1010;a\n2000;2010;last")
	r := NewResolver()
	if err := r.RegisterFile(path); err != nil {
		t.Fatalf("RegisterFile error: %v", err)
	}
	if _, ok, _ := r.Resolve(0x2000); ok {
		t.Fatal("unterminated line resolved before Flush")
	}
	if err := r.Flush(); err != nil {
		t.Fatalf("Flush error: %v", err)
	}
	assertResolves(t, r, []addressCase{{"2000", "last"}, {"1000", "a"}})
	if got := r.Stats().Current; got != 2 {
		t.Errorf("Stats().Current = %d, want 2", got)
	}
}
