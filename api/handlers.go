package api

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/InjectiveLabs/coretracer"
	"github.com/gorilla/mux"
	"github.com/pkg/errors"

	"github.com/InjectiveLabs/slotlens/cache"
	"github.com/InjectiveLabs/slotlens/layout/assembler"
	"github.com/InjectiveLabs/slotlens/layout/compare"
	"github.com/InjectiveLabs/slotlens/layout/erc7201"
	"github.com/InjectiveLabs/slotlens/layout/types"
	"github.com/InjectiveLabs/slotlens/registry/solcbin"
	"github.com/InjectiveLabs/slotlens/registry/sourcify"
	"github.com/InjectiveLabs/slotlens/workspace"
)

type messageResponse struct {
	Message string `json:"message"`
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.WithError(err).Errorln("failed to encode response")
	}
}

func (s *Server) writeMessage(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, messageResponse{Message: msg})
}

func (s *Server) writeCached(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Cache-Control", cacheControl)
	s.writeJSON(w, http.StatusOK, v)
}

func decodeBody(r *http.Request, v interface{}) error {
	body := io.LimitReader(r.Body, maxRequestBytes)
	if err := json.NewDecoder(body).Decode(v); err != nil {
		return errors.Wrap(err, "invalid JSON body")
	}
	return nil
}

type renderResponse struct {
	Layouts []workspace.Region `json:"layouts"`
}

func regionsOf(regions assembler.Regions) []workspace.Region {
	out := make([]workspace.Region, 0, len(regions))
	for _, region := range regions {
		r := workspace.Region{Name: region.Name, Layout: region.Layout}
		if region.Err != nil {
			r.Error = region.Err.Error()
		}
		out = append(out, r)
	}
	return out
}

func (s *Server) renderLayout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	defer coretracer.Trace(&ctx, s.svcTags)()

	var layout types.StorageLayout
	if err := decodeBody(r, &layout); err != nil {
		s.writeMessage(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := layout.Validate(); err != nil {
		s.writeMessage(w, http.StatusBadRequest, err.Error())
		return
	}

	if name := r.URL.Query().Get("region"); name != "" {
		s.renderRegion(w, r, &layout, name)
		return
	}

	regions := s.assembler.AssembleRegions(ctx, &layout)
	if err := regions.Err(); err != nil {
		coretracer.TraceError(ctx, err)
	}

	s.writeJSON(w, http.StatusOK, renderResponse{Layouts: regionsOf(regions)})
}

// renderRegion reconstructs the single region selected by the region query.
func (s *Server) renderRegion(w http.ResponseWriter, r *http.Request, layout *types.StorageLayout, name string) {
	region := workspace.Region{Name: name}

	l, err := s.assembler.AssembleRegion(layout, name)
	switch {
	case errors.Is(err, types.ErrNamespaceNotFound):
		s.writeMessage(w, http.StatusNotFound, err.Error())
		return
	case err != nil:
		region.Error = err.Error()
	default:
		region.Layout = &l
	}

	s.writeJSON(w, http.StatusOK, renderResponse{Layouts: []workspace.Region{region}})
}

type compatibilityRequest struct {
	OriginStorageLayout      *types.StorageLayout `json:"originStorageLayout"`
	DestinationStorageLayout *types.StorageLayout `json:"destinationStorageLayout"`
}

type compatibilityResponse struct {
	CompatibilityReport string            `json:"compatibilityReport"`
	Findings            []compare.Finding `json:"findings"`
	OK                  bool              `json:"ok"`
}

func (s *Server) compatibilityReport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	defer coretracer.Trace(&ctx, s.svcTags)()

	var req compatibilityRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeMessage(w, http.StatusBadRequest, err.Error())
		return
	}

	if req.OriginStorageLayout == nil || req.DestinationStorageLayout == nil {
		s.writeMessage(w, http.StatusBadRequest, "Origin and destination storage layouts are required.")
		return
	}

	report, err := s.comparator.Compare(ctx, req.OriginStorageLayout, req.DestinationStorageLayout)
	if err != nil {
		coretracer.TraceError(ctx, err)
		s.logger.WithError(err).Errorln("failed to generate compatibility report")
		s.writeMessage(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.writeCached(w, compatibilityResponse{
		CompatibilityReport: report.Text,
		Findings:            report.Findings,
		OK:                  report.OK(),
	})
}

// chainID accepts both JSON numbers and decimal strings.
type chainID uint64

func (c *chainID) UnmarshalJSON(data []byte) error {
	raw := strings.Trim(string(data), `"`)
	if raw == "" || raw == "null" {
		*c = 0
		return nil
	}

	v, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return errors.Wrapf(err, "invalid chain id %s", string(data))
	}

	*c = chainID(v)
	return nil
}

type cachedLayoutRequest struct {
	ChainID chainID `json:"chainId"`
	Address string  `json:"address"`
	// Fetch reads through to the registry on a cache miss.
	Fetch bool `json:"fetch,omitempty"`
}

func (s *Server) cachedStorageLayout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	defer coretracer.Trace(&ctx, s.svcTags)()

	var req cachedLayoutRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeMessage(w, http.StatusBadRequest, err.Error())
		return
	}

	if req.ChainID == 0 || req.Address == "" {
		s.writeMessage(w, http.StatusBadRequest, "Chain ID and address are required.")
		return
	}

	address, err := sourcify.NormalizeAddress(req.Address)
	if err != nil {
		s.writeMessage(w, http.StatusBadRequest, err.Error())
		return
	}

	if s.fetcher == nil {
		s.writeMessage(w, http.StatusNotFound, "Storage layout not cached.")
		return
	}

	var entry *cache.Entry
	if req.Fetch {
		entry, err = s.fetcher.Fetch(ctx, uint64(req.ChainID), address)
	} else {
		entry, err = s.fetcher.Cached(ctx, uint64(req.ChainID), address)
	}

	switch {
	case err == nil:
	case errors.Is(err, types.ErrLayoutNotCached):
		s.writeMessage(w, http.StatusNotFound, "Storage layout not cached.")
		return
	case errors.Is(err, types.ErrContractNotVerified):
		s.writeMessage(w, http.StatusNotFound, err.Error())
		return
	case errors.Is(err, types.ErrUnsupportedCompiler):
		s.writeMessage(w, http.StatusUnprocessableEntity, err.Error())
		return
	default:
		coretracer.TraceError(ctx, err)
		s.writeMessage(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.writeCached(w, entry)
}

type namespaceResponse struct {
	ID       string `json:"id"`
	Key      string `json:"key"`
	BaseSlot string `json:"baseSlot"`
	Formula  string `json:"formula"`
}

func (s *Server) namespace(w http.ResponseWriter, r *http.Request) {
	id := erc7201.NamespaceID(mux.Vars(r)["id"])
	if id == "" {
		s.writeMessage(w, http.StatusBadRequest, "Namespace id is required.")
		return
	}

	s.writeCached(w, namespaceResponse{
		ID:       id,
		Key:      erc7201.Key(id),
		BaseSlot: erc7201.BaseSlot(id).Hex(),
		Formula:  erc7201.Formula(id),
	})
}

type solcVersionsResponse struct {
	SolcVersions map[string]string `json:"solc_versions"`
	EVMVersions  []string          `json:"evm_versions"`
}

func (s *Server) solcVersions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	defer coretracer.Trace(&ctx, s.svcTags)()

	if s.releases == nil {
		s.writeMessage(w, http.StatusNotFound, "Compiler list is not available.")
		return
	}

	releases, err := s.releases.Releases(ctx)
	if err != nil {
		coretracer.TraceError(ctx, err)
		s.writeMessage(w, http.StatusBadGateway, err.Error())
		return
	}

	s.writeCached(w, solcVersionsResponse{
		SolcVersions: releases,
		EVMVersions:  solcbin.EVMVersions,
	})
}

type workspaceRequest struct {
	Name          string               `json:"name"`
	Source        string               `json:"source"`
	StorageLayout *types.StorageLayout `json:"storageLayout"`
}

type workspaceResponse struct {
	Layouts []*workspace.Item `json:"layouts"`
}

func (s *Server) listWorkspace(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, workspaceResponse{Layouts: s.workspace.List()})
}

func (s *Server) addToWorkspace(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	defer coretracer.Trace(&ctx, s.svcTags)()

	var req workspaceRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeMessage(w, http.StatusBadRequest, err.Error())
		return
	}

	if req.StorageLayout == nil {
		s.writeMessage(w, http.StatusBadRequest, "Storage layout is required.")
		return
	}

	item, err := s.workspace.Add(ctx, req.Name, req.Source, req.StorageLayout)
	if err != nil {
		s.writeMessage(w, http.StatusBadRequest, err.Error())
		return
	}

	s.writeJSON(w, http.StatusCreated, item)
}

func (s *Server) removeFromWorkspace(w http.ResponseWriter, r *http.Request) {
	if err := s.workspace.Remove(mux.Vars(r)["id"]); err != nil {
		s.writeMessage(w, http.StatusNotFound, err.Error())
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
