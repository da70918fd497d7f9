package change

import (
	"fmt"

	"github.com/NERVsystems/osmdelta/pkg/entity"
	"github.com/NERVsystems/osmdelta/pkg/overlay"
)

// BeforeView builds the before view matching after from the store entity e:
// every field after sets is copied from e, the rest stay absent. The view is
// bounded by e.
func BeforeView(after overlay.Overlay, e entity.Entity) (overlay.Overlay, error) {
	if entity.KeyOf(after) != entity.KeyOf(e) {
		return nil, fmt.Errorf("%w: store entity %s does not match %s", ErrInvalid, entity.KeyOf(e), entity.KeyOf(after))
	}

	switch a := after.(type) {
	case overlay.Node:
		n, ok := e.(entity.Node)
		if !ok {
			break
		}
		b := seed(overlay.NewNode(a.Identifier()), a, e)
		if _, ok := a.Location(); ok {
			b = b.WithLocation(n.Location())
		}
		if _, ok := a.InEdges(); ok {
			b = b.WithInEdges(n.InEdges())
		}
		if _, ok := a.OutEdges(); ok {
			b = b.WithOutEdges(n.OutEdges())
		}
		return b, nil

	case overlay.Edge:
		ed, ok := e.(entity.Edge)
		if !ok {
			break
		}
		b := seed(overlay.NewEdge(a.Identifier()), a, e)
		if _, ok := a.PolyLine(); ok {
			b = b.WithPolyLine(ed.PolyLine())
		}
		if _, ok := a.StartNode(); ok {
			b = b.WithStartNode(ed.StartNode())
		}
		if _, ok := a.EndNode(); ok {
			b = b.WithEndNode(ed.EndNode())
		}
		return b, nil

	case overlay.Area:
		ar, ok := e.(entity.Area)
		if !ok {
			break
		}
		b := seed(overlay.NewArea(a.Identifier()), a, e)
		if _, ok := a.Polygon(); ok {
			b = b.WithPolygon(ar.Polygon())
		}
		return b, nil

	case overlay.Line:
		l, ok := e.(entity.Line)
		if !ok {
			break
		}
		b := seed(overlay.NewLine(a.Identifier()), a, e)
		if _, ok := a.PolyLine(); ok {
			b = b.WithPolyLine(l.PolyLine())
		}
		return b, nil

	case overlay.Point:
		p, ok := e.(entity.Point)
		if !ok {
			break
		}
		b := seed(overlay.NewPoint(a.Identifier()), a, e)
		if _, ok := a.Location(); ok {
			b = b.WithLocation(p.Location())
		}
		return b, nil

	case overlay.Relation:
		r, ok := e.(entity.Relation)
		if !ok {
			break
		}
		b := seed(overlay.NewRelation(a.Identifier()), a, e)
		if _, ok := a.Members(); ok {
			b = b.WithMembers(r.Members())
		}
		if _, ok := a.OSMRelationIdentifier(); ok {
			b = b.WithOSMRelationIdentifier(r.OSMRelationIdentifier())
		}
		if _, ok := a.AllRelationsWithSameOSMIdentifier(); ok {
			b = b.WithAllRelationsWithSameOSMIdentifier(r.AllRelationsWithSameOSMIdentifier())
		}
		if _, ok := a.AllKnownOSMMembers(); ok {
			b = b.WithAllKnownOSMMembers(r.AllKnownOSMMembers())
		}
		return b, nil
	}
	return nil, fmt.Errorf("%w: store entity %T does not implement %s", ErrInvalid, e, after.Kind())
}

func seed[O overlay.Common[O]](dst O, after overlay.Overlay, e entity.Entity) O {
	dst = dst.WithBoundsExtendedBy(e.Bounds())
	if _, ok := after.Tags(); ok {
		dst = dst.WithTags(e.Tags())
	}
	if _, ok := after.ParentRelations(); ok {
		dst = dst.WithParentRelations(e.ParentRelations())
	}
	return dst
}
