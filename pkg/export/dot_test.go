package export

import (
	"strings"
	"testing"

	"github.com/launchforge/forgekit/pkg/catalog"
	"github.com/launchforge/forgekit/pkg/dag"
)

func testGraph(t *testing.T) (*dag.Graph, map[string]*catalog.Service) {
	t.Helper()
	g := dag.New()
	services := map[string]*catalog.Service{
		"auth/clerk":          {Type: "auth", Provider: "clerk", Version: "5.2.0", Priority: 8},
		"database/postgresql": {Type: "database", Provider: "postgresql", Version: "16.3.0", Priority: 10},
		"email/resend":        {Type: "email", Provider: "resend", Version: "2.0.0"},
	}
	for id, svc := range services {
		if err := g.AddNode(dag.Node{ID: id, Priority: svc.Priority}); err != nil {
			t.Fatalf("AddNode(%s): %v", id, err)
		}
	}
	mustEdge := func(e dag.Edge) {
		if err := g.AddEdge(e); err != nil {
			t.Fatalf("AddEdge: %v", err)
		}
	}
	mustEdge(dag.Edge{From: "auth/clerk", To: "database/postgresql", Kind: dag.EdgeRequired})
	mustEdge(dag.Edge{From: "auth/clerk", To: "email/resend", Kind: dag.EdgeOptional})
	return g, services
}

func TestToDOT(t *testing.T) {
	g, services := testGraph(t)
	dot := ToDOT(g, services, Options{})

	if !strings.HasPrefix(dot, "digraph forgekit {") || !strings.HasSuffix(dot, "}\n") {
		t.Errorf("malformed DOT document:\n%s", dot)
	}
	for id := range services {
		if !strings.Contains(dot, `"`+id+`"`) {
			t.Errorf("node %s missing:\n%s", id, dot)
		}
	}
	if !strings.Contains(dot, `"auth/clerk" -> "database/postgresql";`) {
		t.Errorf("required edge missing:\n%s", dot)
	}
	if !strings.Contains(dot, `"auth/clerk" -> "email/resend" [style=dashed];`) {
		t.Errorf("optional edge should be dashed:\n%s", dot)
	}
}

func TestToDOTLabels(t *testing.T) {
	g, services := testGraph(t)

	plain := ToDOT(g, services, Options{})
	if strings.Contains(plain, "priority") {
		t.Error("labels should be off by default")
	}

	labeled := ToDOT(g, services, Options{Labels: true})
	if !strings.Contains(labeled, `v16.3.0 (priority 10)`) {
		t.Errorf("version label missing:\n%s", labeled)
	}
}

func TestToDOTHighlight(t *testing.T) {
	g, services := testGraph(t)

	dot := ToDOT(g, services, Options{Highlight: []string{"auth/clerk"}})
	if !strings.Contains(dot, `"auth/clerk" [label="auth/clerk", fillcolor="#b8e0ff"];`) {
		t.Errorf("highlighted node missing accent fill:\n%s", dot)
	}
	if strings.Contains(dot, `"email/resend" [label="email/resend", fillcolor=`) {
		t.Errorf("unrequested node should keep the default fill:\n%s", dot)
	}
}

func TestToDOTDeterministic(t *testing.T) {
	g, services := testGraph(t)
	first := ToDOT(g, services, Options{Labels: true})
	for range 5 {
		if again := ToDOT(g, services, Options{Labels: true}); again != first {
			t.Fatal("DOT output not deterministic")
		}
	}
}
