package stores

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// XMLStore keeps the whole order collection in a single XML document.
// Every operation parses the full document and every mutation rewrites it.
// There is no inter-process locking: one writer process at a time.
type XMLStore struct {
	path   string
	logger zerolog.Logger
	now    func() time.Time
}

// XMLConfig holds XML store configuration
type XMLConfig struct {
	Path   string
	Logger zerolog.Logger
}

// The element and attribute names are those of the existing medicamentos.xml
// files, so documents written by earlier versions keep loading.
type xmlDocument struct {
	XMLName xml.Name    `xml:"medicamentos"`
	Records []xmlRecord `xml:"medicamento"`
}

type xmlRecord struct {
	Name        string   `xml:"nombre,attr"`
	Type        string   `xml:"tipo,attr"`
	Quantity    string   `xml:"cantidad,attr"`
	Distributor string   `xml:"distribuidor,attr"`
	Timestamp   string   `xml:"fecha,attr"`
	Branches    []string `xml:"sucursal"`
}

// NewXMLStore creates the store and makes sure the backing document exists.
func NewXMLStore(cfg XMLConfig) (*XMLStore, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("xml document path is required")
	}

	s := &XMLStore{
		path:   cfg.Path,
		logger: cfg.Logger.With().Str("component", "xml_store").Str("path", cfg.Path).Logger(),
		now:    time.Now,
	}
	if err := s.EnsureInitialized(); err != nil {
		return nil, err
	}
	return s, nil
}

// Backend implements Store.
func (s *XMLStore) Backend() Backend {
	return BackendXML
}

// Path returns the location of the backing document.
func (s *XMLStore) Path() string {
	return s.path
}

// EnsureInitialized writes an empty document when none exists.
func (s *XMLStore) EnsureInitialized() error {
	_, err := os.Stat(s.path)
	if err == nil {
		return nil
	}
	if !os.IsNotExist(err) {
		return s.fail("init", fmt.Errorf("failed to stat document: %w", err))
	}

	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return s.fail("init", fmt.Errorf("failed to create directory %s: %w", dir, err))
		}
	}
	if err := s.save(&xmlDocument{}); err != nil {
		return s.fail("init", err)
	}
	s.logger.Info().Msg("Created empty order document")
	return nil
}

// Add appends the order and stamps it with the current time.
func (s *XMLStore) Add(ctx context.Context, order *Order) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	doc, err := s.load()
	if err != nil {
		return s.fail("add", err)
	}

	order.ID = 0
	order.Timestamp = s.now().Truncate(time.Second)
	doc.Records = append(doc.Records, toXMLRecord(order))

	if err := s.save(doc); err != nil {
		return s.fail("add", err)
	}

	s.logger.Debug().
		Str("name", order.Name).
		Str("timestamp", order.FormattedTimestamp()).
		Msg("Order added")
	return nil
}

// List returns all orders in document order.
func (s *XMLStore) List(ctx context.Context) ([]*Order, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	doc, err := s.load()
	if err != nil {
		return nil, s.fail("list", err)
	}

	orders := make([]*Order, 0, len(doc.Records))
	for i, rec := range doc.Records {
		order, err := fromXMLRecord(rec)
		if err != nil {
			return nil, s.fail("list", fmt.Errorf("record %d: %w", i, err))
		}
		orders = append(orders, order)
	}
	return orders, nil
}

// ListByType returns orders whose type equals t, ignoring case.
func (s *XMLStore) ListByType(ctx context.Context, t string) ([]*Order, error) {
	return s.filter(ctx, func(o *Order) bool { return strings.EqualFold(o.Type, t) })
}

// ListByDistributor returns orders whose distributor equals d, ignoring case.
func (s *XMLStore) ListByDistributor(ctx context.Context, d string) ([]*Order, error) {
	return s.filter(ctx, func(o *Order) bool { return strings.EqualFold(o.Distributor, d) })
}

// ListFiltered implements Store.
func (s *XMLStore) ListFiltered(ctx context.Context, f Filter) ([]*Order, error) {
	return s.filter(ctx, func(o *Order) bool {
		if f.byType() && !strings.EqualFold(o.Type, f.Type) {
			return false
		}
		if f.byDistributor() && !strings.EqualFold(o.Distributor, f.Distributor) {
			return false
		}
		return true
	})
}

// SearchByName returns orders whose name contains pattern, ignoring case.
func (s *XMLStore) SearchByName(ctx context.Context, pattern string) ([]*Order, error) {
	needle := strings.ToLower(pattern)
	return s.filter(ctx, func(o *Order) bool {
		return strings.Contains(strings.ToLower(o.Name), needle)
	})
}

func (s *XMLStore) filter(ctx context.Context, keep func(*Order) bool) ([]*Order, error) {
	all, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]*Order, 0, len(all))
	for _, o := range all {
		if keep(o) {
			out = append(out, o)
		}
	}
	return out, nil
}

// DeleteByNameAndTimestamp removes the first record, in document order, whose
// name and timestamp both match. It returns the number of records removed.
func (s *XMLStore) DeleteByNameAndTimestamp(ctx context.Context, name string, ts time.Time) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	doc, err := s.load()
	if err != nil {
		return 0, s.fail("delete", err)
	}

	stamp := ts.Format(TimestampLayout)
	for i, rec := range doc.Records {
		if rec.Name != name || rec.Timestamp != stamp {
			continue
		}
		doc.Records = append(doc.Records[:i], doc.Records[i+1:]...)
		if err := s.save(doc); err != nil {
			return 0, s.fail("delete", err)
		}
		s.logger.Debug().Str("name", name).Str("timestamp", stamp).Msg("Order deleted")
		return 1, nil
	}

	s.logger.Debug().Str("name", name).Str("timestamp", stamp).Msg("No order matched delete")
	return 0, nil
}

// Count returns the number of records in the document.
func (s *XMLStore) Count(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	doc, err := s.load()
	if err != nil {
		return 0, s.fail("count", err)
	}
	return len(doc.Records), nil
}

// Close implements Store. File handles are never held between operations.
func (s *XMLStore) Close() error {
	return nil
}

func (s *XMLStore) load() (*xmlDocument, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read document: %w", err)
	}

	doc := &xmlDocument{}
	if err := xml.Unmarshal(data, doc); err != nil {
		return nil, fmt.Errorf("failed to parse document: %w", err)
	}
	return doc, nil
}

// save writes to a sibling temp file and renames it over the document.
func (s *XMLStore) save(doc *xmlDocument) error {
	var buf bytes.Buffer
	buf.WriteString(xml.Header)

	enc := xml.NewEncoder(&buf)
	enc.Indent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("failed to encode document: %w", err)
	}
	buf.WriteByte('\n')

	tmp, err := os.CreateTemp(filepath.Dir(s.path), "."+filepath.Base(s.path)+".*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(buf.Bytes()); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to write document: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to write document: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to replace document: %w", err)
	}
	return nil
}

func (s *XMLStore) fail(op string, err error) error {
	s.logger.Error().Err(err).Str("operation", op).Msg("XML store operation failed")
	return opError(BackendXML, op, err)
}

func toXMLRecord(o *Order) xmlRecord {
	return xmlRecord{
		Name:        o.Name,
		Type:        o.Type,
		Quantity:    strconv.Itoa(o.Quantity),
		Distributor: o.Distributor,
		Timestamp:   o.FormattedTimestamp(),
		Branches:    append([]string(nil), o.Branches...),
	}
}

func fromXMLRecord(rec xmlRecord) (*Order, error) {
	qty, err := strconv.Atoi(strings.TrimSpace(rec.Quantity))
	if err != nil {
		return nil, fmt.Errorf("invalid quantity %q: %w", rec.Quantity, err)
	}
	ts, err := time.ParseInLocation(TimestampLayout, rec.Timestamp, time.Local)
	if err != nil {
		return nil, fmt.Errorf("invalid timestamp %q: %w", rec.Timestamp, err)
	}

	branches := make([]string, 0, len(rec.Branches))
	for _, b := range rec.Branches {
		branches = append(branches, strings.TrimSpace(b))
	}

	return &Order{
		Name:        rec.Name,
		Type:        rec.Type,
		Quantity:    qty,
		Distributor: rec.Distributor,
		Branches:    branches,
		Timestamp:   ts,
	}, nil
}
