package memory

import (
	"cmp"
	"context"
	"slices"

	"cjw/internal/storage"
)

type planRepo struct{ s *Store }

func (r planRepo) GetAll(ctx context.Context) ([]storage.Plan, error) {
	return r.filter(func(storage.Plan) bool { return true }), nil
}

func (r planRepo) GetActive(ctx context.Context) ([]storage.Plan, error) {
	return r.filter(func(p storage.Plan) bool { return p.Status == storage.PlanActive }), nil
}

func (r planRepo) GetByID(ctx context.Context, id int64) (*storage.Plan, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	i := r.index(id)
	if i < 0 {
		return nil, nil
	}
	p := storage.ClonePlan(r.s.plans[i])
	return &p, nil
}

func (r planRepo) Create(ctx context.Context, in storage.PlanInput) (*storage.Plan, error) {
	in, err := storage.NormalizePlanInput(in)
	if err != nil {
		return nil, err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.nextPlanID++
	ts := now()
	p := storage.ClonePlan(storage.Plan{
		ID:          r.s.nextPlanID,
		Title:       in.Title,
		Description: in.Description,
		Color:       in.Color,
		Status:      in.Status,
		StartDate:   in.StartDate,
		EndDate:     in.EndDate,
		CreatedAt:   ts,
		UpdatedAt:   ts,
	})
	r.s.plans = append(r.s.plans, p)
	out := storage.ClonePlan(p)
	return &out, nil
}

func (r planRepo) Update(ctx context.Context, id int64, patch storage.PlanPatch) (*storage.Plan, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	i := r.index(id)
	if i < 0 {
		return nil, storage.NotFound("plan", id)
	}
	p := storage.ClonePlan(r.s.plans[i])
	if err := storage.ApplyPlanPatch(&p, patch); err != nil {
		return nil, err
	}
	p.UpdatedAt = now()
	r.s.plans[i] = p
	out := storage.ClonePlan(p)
	return &out, nil
}

func (r planRepo) Delete(ctx context.Context, id int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	i := r.index(id)
	if i < 0 {
		return storage.NotFound("plan", id)
	}
	r.s.plans = slices.Delete(r.s.plans, i, i+1)
	r.s.keyResults = slices.DeleteFunc(r.s.keyResults, func(kr storage.KeyResult) bool { return kr.PlanID == id })
	return nil
}

func (r planRepo) ListKeyResults(ctx context.Context, planID int64) ([]storage.KeyResult, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.keyResultsOf(planID), nil
}

func (r planRepo) GetKeyResult(ctx context.Context, id int64) (*storage.KeyResult, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	i := r.krIndex(id)
	if i < 0 {
		return nil, nil
	}
	kr := r.s.keyResults[i]
	return &kr, nil
}

func (r planRepo) CreateKeyResult(ctx context.Context, in storage.KeyResultInput) (*storage.KeyResult, error) {
	in, err := storage.NormalizeKeyResultInput(in)
	if err != nil {
		return nil, err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.index(in.PlanID) < 0 {
		return nil, storage.NotFound("plan", in.PlanID)
	}
	r.s.nextKRID++
	ts := now()
	kr := storage.KeyResult{
		ID:           r.s.nextKRID,
		PlanID:       in.PlanID,
		Title:        in.Title,
		TargetValue:  in.TargetValue,
		CurrentValue: in.CurrentValue,
		Unit:         in.Unit,
		Progress:     storage.KeyResultProgress(in.CurrentValue, in.TargetValue),
		CreatedAt:    ts,
		UpdatedAt:    ts,
	}
	r.s.keyResults = append(r.s.keyResults, kr)
	r.recalculate(in.PlanID)
	return &kr, nil
}

func (r planRepo) UpdateKeyResult(ctx context.Context, id int64, p storage.KeyResultPatch) (*storage.KeyResult, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	i := r.krIndex(id)
	if i < 0 {
		return nil, storage.NotFound("key result", id)
	}
	kr := r.s.keyResults[i]
	if err := storage.ApplyKeyResultPatch(&kr, p); err != nil {
		return nil, err
	}
	kr.UpdatedAt = now()
	r.s.keyResults[i] = kr
	r.recalculate(kr.PlanID)
	return &kr, nil
}

func (r planRepo) DeleteKeyResult(ctx context.Context, id int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	i := r.krIndex(id)
	if i < 0 {
		return storage.NotFound("key result", id)
	}
	planID := r.s.keyResults[i].PlanID
	r.s.keyResults = slices.Delete(r.s.keyResults, i, i+1)
	r.recalculate(planID)
	return nil
}

func (r planRepo) RecalculatePlanProgress(ctx context.Context, planID int64) (float64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.index(planID) < 0 {
		return 0, storage.NotFound("plan", planID)
	}
	return r.recalculate(planID), nil
}

// recalculate expects s.mu to be held, so the key result write and the
// plan progress update are observed together.
func (r planRepo) recalculate(planID int64) float64 {
	i := r.index(planID)
	if i < 0 {
		return 0
	}
	progress := storage.PlanProgress(r.keyResultsOf(planID))
	r.s.plans[i].Progress = progress
	r.s.plans[i].UpdatedAt = now()
	return progress
}

func (r planRepo) keyResultsOf(planID int64) []storage.KeyResult {
	var out []storage.KeyResult
	for _, kr := range r.s.keyResults {
		if kr.PlanID == planID {
			out = append(out, kr)
		}
	}
	return out
}

func (r planRepo) index(id int64) int {
	return slices.IndexFunc(r.s.plans, func(p storage.Plan) bool { return p.ID == id })
}

func (r planRepo) krIndex(id int64) int {
	return slices.IndexFunc(r.s.keyResults, func(kr storage.KeyResult) bool { return kr.ID == id })
}

func (r planRepo) filter(keep func(storage.Plan) bool) []storage.Plan {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []storage.Plan
	for _, p := range r.s.plans {
		if keep(p) {
			out = append(out, storage.ClonePlan(p))
		}
	}
	slices.SortStableFunc(out, func(a, b storage.Plan) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(b.ID, a.ID)
	})
	return out
}

type imageRepo struct{ s *Store }

func (r imageRepo) GetAll(ctx context.Context) ([]storage.PlanImage, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := slices.Clone(r.s.images)
	slices.SortStableFunc(out, func(a, b storage.PlanImage) int {
		if c := cmp.Compare(a.SortOrder, b.SortOrder); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return out, nil
}

func (r imageRepo) GetByID(ctx context.Context, id int64) (*storage.PlanImage, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	i := r.index(id)
	if i < 0 {
		return nil, nil
	}
	img := r.s.images[i]
	return &img, nil
}

func (r imageRepo) Create(ctx context.Context, in storage.PlanImageInput) (*storage.PlanImage, error) {
	if in.ImagePath == "" {
		return nil, storage.ValidationError{Field: "image_path", Reason: "required"}
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	next := 0
	for _, img := range r.s.images {
		next = max(next, img.SortOrder+1)
	}
	r.s.nextImageID++
	img := storage.PlanImage{
		ID:        r.s.nextImageID,
		Title:     in.Title,
		ImagePath: in.ImagePath,
		CreatedAt: now(),
		SortOrder: next,
	}
	r.s.images = append(r.s.images, img)
	return &img, nil
}

func (r imageRepo) Update(ctx context.Context, id int64, p storage.PlanImagePatch) (*storage.PlanImage, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	i := r.index(id)
	if i < 0 {
		return nil, storage.NotFound("plan image", id)
	}
	if p.Title != nil {
		r.s.images[i].Title = *p.Title
	}
	if p.ImagePath != nil {
		r.s.images[i].ImagePath = *p.ImagePath
	}
	img := r.s.images[i]
	return &img, nil
}

func (r imageRepo) Delete(ctx context.Context, id int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	i := r.index(id)
	if i < 0 {
		return storage.NotFound("plan image", id)
	}
	r.s.images = slices.Delete(r.s.images, i, i+1)
	return nil
}

func (r imageRepo) Reorder(ctx context.Context, ids []int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, id := range ids {
		if r.index(id) < 0 {
			return storage.NotFound("plan image", id)
		}
	}
	for pos, id := range ids {
		r.s.images[r.index(id)].SortOrder = pos
	}
	return nil
}

func (r imageRepo) index(id int64) int {
	return slices.IndexFunc(r.s.images, func(img storage.PlanImage) bool { return img.ID == id })
}

type settingsRepo struct{ s *Store }

func (r settingsRepo) Get(ctx context.Context) (storage.Settings, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.s.settings, nil
}

func (r settingsRepo) Update(ctx context.Context, patch map[string]any) (storage.Settings, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out, err := storage.MergeSettings(r.s.settings, patch)
	if err != nil {
		return r.s.settings, err
	}
	r.s.settings = out
	return out, nil
}

func (r settingsRepo) Set(ctx context.Context, path string, value any) (storage.Settings, error) {
	patch, err := storage.PathPatch(path, value)
	if err != nil {
		return storage.Settings{}, err
	}
	return r.Update(ctx, patch)
}

func (r settingsRepo) Replace(ctx context.Context, s storage.Settings) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.settings = s
	return nil
}
