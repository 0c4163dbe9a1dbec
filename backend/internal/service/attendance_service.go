package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"acadtrack/backend/config"
	"acadtrack/backend/internal/dto"
	"acadtrack/backend/internal/model"
	"acadtrack/backend/internal/repository"
	"acadtrack/backend/pkg/redis"
)

// ── 考勤模块业务错误 ──

var (
	ErrAttendanceCourseNotFound      = errors.New("课程不存在")
	ErrAttendanceStudentNotFound     = errors.New("学生不存在")
	ErrAttendanceInvalidID           = errors.New("ID 格式无效")
	ErrAttendanceInvalidDate         = errors.New("日期格式无效，应为 YYYY-MM-DD")
	ErrAttendanceInvalidTime         = errors.New("时间格式无效，应为 24 小时制 HH:MM")
	ErrAttendanceInvalidComponent    = errors.New("成分无效，应为 theory 或 lab")
	ErrAttendanceComponentRequired   = errors.New("一体化课程考勤必须指定 theory/lab 成分")
	ErrAttendanceInvalidAcademicYear = errors.New("学年格式无效，应为 YYYY-YY")
)

// AttendanceThreshold 出勤率预警阈值（百分比，引擎固定常量）
const AttendanceThreshold = 75.0

const summaryCachePrefix = "attendance:summary:"

const dateLayout = "2006-01-02"

// ── AttendanceService 接口 ──────────────────────────────────
//
// 设计说明：
//   - 会话身份统一由 model.SessionKey 推导，本层绝不自行比较日期/时段。
//   - 聚合先做跨文档合并（同一学生多学年文档取并集），再推导会话键，
//     避免重复入学造成同一堂课被计两次。
//   - 记录/修改考勤按学生独立写入：单个学生失败只记入 skipped，
//     不回滚其他学生（部分成功为刻意设计，重新提交即可恢复）。
//   - 同一文档的读-改-写存在并发丢失更新窗口，按现有规模接受
//     last-write-wins，不引入乐观锁。
// ─────────────────────────────────────────────────────────────

// AttendanceService 考勤聚合与会话变更业务接口
type AttendanceService interface {
	// ListCourseAttendance 课程全员考勤聚合（按学生）
	ListCourseAttendance(ctx context.Context, courseID string, req *dto.AttendanceFilterRequest) ([]dto.StudentAttendanceResponse, error)
	// GetSummary 课程级考勤汇总
	GetSummary(ctx context.Context, courseID string, req *dto.AttendanceFilterRequest) (*dto.CourseAttendanceSummaryResponse, error)
	// GetStudentAttendance 单个学生的跨文档合并聚合
	GetStudentAttendance(ctx context.Context, courseID, studentID string, req *dto.AttendanceFilterRequest) (*dto.StudentAttendanceResponse, error)
	// Take 记录一堂课的考勤（同会话键重复提交为替换，幂等）
	Take(ctx context.Context, courseID string, req *dto.TakeAttendanceRequest) (*dto.MutationResultResponse, error)
	// Modify 修改/移动一个会话（记录原位覆盖，不删除重建）
	Modify(ctx context.Context, courseID string, req *dto.ModifyAttendanceRequest) (*dto.MutationResultResponse, error)
	// Delete 按日历日窗口批量删除会话
	Delete(ctx context.Context, courseID string, req *dto.DeleteAttendanceRequest) (*dto.DeleteResultResponse, error)
}

type attendanceService struct {
	repo                *repository.Repository
	cache               *redis.Client // 可为 nil：降级为不缓存
	defaultAcademicYear string
	cacheTTL            time.Duration
	logger              *zap.Logger
}

// NewAttendanceService 创建 AttendanceService 实例
// 默认学年来自配置注入，杜绝散落在调用点的硬编码字面量
func NewAttendanceService(cfg *config.Config, repo *repository.Repository, cache *redis.Client, logger *zap.Logger) AttendanceService {
	return &attendanceService{
		repo:                repo,
		cache:               cache,
		defaultAcademicYear: cfg.Attendance.DefaultAcademicYear,
		cacheTTL:            cfg.Attendance.SummaryCacheTTL,
		logger:              logger,
	}
}

// ════════════════════════════════════════════════════════════
// 查询聚合
// ════════════════════════════════════════════════════════════

func (s *attendanceService) ListCourseAttendance(ctx context.Context, courseID string, req *dto.AttendanceFilterRequest) ([]dto.StudentAttendanceResponse, error) {
	course, err := s.resolveCourse(ctx, courseID)
	if err != nil {
		return nil, err
	}

	filter, err := s.parseFilter(req)
	if err != nil {
		return nil, err
	}

	docs, err := s.repo.Attendance.ListByCourse(ctx, course.CourseID, filter)
	if err != nil {
		s.logger.Error("加载考勤文档失败", zap.String("course_id", courseID), zap.Error(err))
		return nil, err
	}

	byStudent := mergeByStudent(docs)
	students := s.lookupStudents(ctx, studentIDs(byStudent))

	split := course.IsIntegrated() && filter.Component == ""
	result := make([]dto.StudentAttendanceResponse, 0, len(byStudent))
	for _, sid := range studentIDs(byStudent) {
		result = append(result, buildStudentAttendance(sid, students[sid], byStudent[sid], split))
	}

	// 教师视图按注册号稳定排序
	sort.Slice(result, func(i, j int) bool {
		if result[i].RegistrationNumber != result[j].RegistrationNumber {
			return result[i].RegistrationNumber < result[j].RegistrationNumber
		}
		return result[i].StudentID < result[j].StudentID
	})

	return result, nil
}

func (s *attendanceService) GetSummary(ctx context.Context, courseID string, req *dto.AttendanceFilterRequest) (*dto.CourseAttendanceSummaryResponse, error) {
	course, err := s.resolveCourse(ctx, courseID)
	if err != nil {
		return nil, err
	}

	if req == nil {
		req = &dto.AttendanceFilterRequest{}
	}
	filter, err := s.parseFilter(req)
	if err != nil {
		return nil, err
	}

	cacheKey := fmt.Sprintf("%s%s:%s:%s:%s:%s",
		summaryCachePrefix, course.CourseID, filter.Component, req.StartDate, req.EndDate, filter.AcademicYear)
	if s.cache != nil {
		var cached dto.CourseAttendanceSummaryResponse
		if hit, err := s.cache.GetJSON(ctx, cacheKey, &cached); err == nil && hit {
			return &cached, nil
		}
	}

	docs, err := s.repo.Attendance.ListByCourse(ctx, course.CourseID, filter)
	if err != nil {
		s.logger.Error("加载考勤文档失败", zap.String("course_id", courseID), zap.Error(err))
		return nil, err
	}

	byStudent := mergeByStudent(docs)

	summary := &dto.CourseAttendanceSummaryResponse{
		CourseID:   course.CourseID,
		Integrated: course.IsIntegrated(),
		Sessions:   buildSessions(byStudent),
	}

	if course.IsIntegrated() && filter.Component == "" {
		// 一体化课程未指定成分：理论/实验各自独立统计，绝不合并分母
		summary.Theory = buildSummaryBlock(byStudent, model.ComponentTheory)
		summary.Lab = buildSummaryBlock(byStudent, model.ComponentLab)
	} else {
		summary.Overall = buildSummaryBlock(byStudent, "")
	}

	if s.cache != nil {
		if err := s.cache.SetJSON(ctx, cacheKey, summary, s.cacheTTL); err != nil {
			s.logger.Warn("写入汇总缓存失败", zap.Error(err))
		}
	}

	return summary, nil
}

func (s *attendanceService) GetStudentAttendance(ctx context.Context, courseID, studentID string, req *dto.AttendanceFilterRequest) (*dto.StudentAttendanceResponse, error) {
	course, err := s.resolveCourse(ctx, courseID)
	if err != nil {
		return nil, err
	}

	if _, err := uuid.Parse(studentID); err != nil {
		return nil, ErrAttendanceInvalidID
	}
	student, err := s.repo.Student.GetByID(ctx, studentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAttendanceStudentNotFound
		}
		s.logger.Error("查询学生失败", zap.String("student_id", studentID), zap.Error(err))
		return nil, err
	}

	filter, err := s.parseFilter(req)
	if err != nil {
		return nil, err
	}

	docs, err := s.repo.Attendance.ListByCourseAndStudent(ctx, course.CourseID, studentID, filter)
	if err != nil {
		s.logger.Error("加载考勤文档失败", zap.String("course_id", courseID), zap.Error(err))
		return nil, err
	}

	// 跨文档并集：不同学年文档中的会话合并为同一份百分比
	var records []model.AttendanceRecord
	for i := range docs {
		records = append(records, docs[i].Records...)
	}

	split := course.IsIntegrated() && filter.Component == ""
	resp := buildStudentAttendance(studentID, student, records, split)
	return &resp, nil
}

// ════════════════════════════════════════════════════════════
// Take — 记录考勤
// ════════════════════════════════════════════════════════════
//
// 流程（按学生独立执行）：
//   1. 跳过状态或学生ID无效的条目（部分成功，不整批失败）
//   2. FindOrCreate (课程, 学生, 学年) 文档
//   3. 推导候选记录的会话键，命中则原位替换，否则追加
//   4. 逐学生保存；失败记入 skipped，其余照常生效

func (s *attendanceService) Take(ctx context.Context, courseID string, req *dto.TakeAttendanceRequest) (*dto.MutationResultResponse, error) {
	course, err := s.resolveCourse(ctx, courseID)
	if err != nil {
		return nil, err
	}

	date, err := time.Parse(dateLayout, req.Date)
	if err != nil {
		return nil, ErrAttendanceInvalidDate
	}

	startTime, endTime, err := normalizeSlot(req.StartTime, req.EndTime)
	if err != nil {
		return nil, err
	}

	component, err := resolveComponent(course, req.Component)
	if err != nil {
		return nil, err
	}

	academicYear, err := s.resolveAcademicYear(req.AcademicYear)
	if err != nil {
		return nil, err
	}

	known, err := s.knownStudents(ctx, req.Students)
	if err != nil {
		return nil, err
	}

	result := &dto.MutationResultResponse{}
	for _, entry := range req.Students {
		if !model.IsValidStatus(entry.Status) || !known[entry.StudentID] {
			result.Skipped = append(result.Skipped, entry.StudentID)
			continue
		}

		doc, err := s.repo.Attendance.FindOrCreate(ctx, course.CourseID, entry.StudentID, academicYear)
		if err != nil {
			s.logger.Error("获取考勤文档失败",
				zap.String("student_id", entry.StudentID), zap.Error(err))
			result.Skipped = append(result.Skipped, entry.StudentID)
			continue
		}

		record := model.AttendanceRecord{
			Date:      date,
			Status:    entry.Status,
			Component: component,
			StartTime: startTime,
			EndTime:   endTime,
			Remarks:   entry.Remarks,
		}

		// 同会话键已存在 → 原位替换（幂等；文档内会话键唯一）
		if idx := doc.IndexByKey(record.SessionKey()); idx >= 0 {
			doc.Records[idx] = record
		} else {
			doc.Records = append(doc.Records, record)
		}

		if err := s.repo.Attendance.Save(ctx, doc); err != nil {
			s.logger.Error("保存考勤文档失败",
				zap.String("student_id", entry.StudentID), zap.Error(err))
			result.Skipped = append(result.Skipped, entry.StudentID)
			continue
		}
		result.Updated++
	}

	s.invalidateSummary(ctx, course.CourseID)
	return result, nil
}

// ════════════════════════════════════════════════════════════
// Modify — 修改/移动会话
// ════════════════════════════════════════════════════════════
//
// 按原始描述符以日历日窗口定位记录（容忍记录日期带非零时间部分），
// 命中后原位覆盖字段，保持记录在数组中的位置。
// 未命中的学生跳过并记入 skipped（宽松编辑策略，但对调用方可见）。

func (s *attendanceService) Modify(ctx context.Context, courseID string, req *dto.ModifyAttendanceRequest) (*dto.MutationResultResponse, error) {
	course, err := s.resolveCourse(ctx, courseID)
	if err != nil {
		return nil, err
	}

	origRef, err := parseSessionRef(course, &req.Original)
	if err != nil {
		return nil, err
	}
	newRef, err := parseSessionRef(course, &req.Updated)
	if err != nil {
		return nil, err
	}

	academicYear, err := s.resolveAcademicYear(req.AcademicYear)
	if err != nil {
		return nil, err
	}

	known, err := s.knownStudents(ctx, req.Students)
	if err != nil {
		return nil, err
	}

	result := &dto.MutationResultResponse{}
	for _, entry := range req.Students {
		if !model.IsValidStatus(entry.Status) || !known[entry.StudentID] {
			result.Skipped = append(result.Skipped, entry.StudentID)
			continue
		}

		docs, err := s.repo.Attendance.ListByCourseAndStudent(ctx, course.CourseID, entry.StudentID,
			model.RecordFilter{AcademicYear: academicYear})
		if err != nil {
			s.logger.Error("加载考勤文档失败",
				zap.String("student_id", entry.StudentID), zap.Error(err))
			result.Skipped = append(result.Skipped, entry.StudentID)
			continue
		}
		if len(docs) == 0 {
			result.Skipped = append(result.Skipped, entry.StudentID)
			continue
		}

		doc := &docs[0]
		idx := doc.IndexByRef(origRef)
		if idx < 0 {
			result.Skipped = append(result.Skipped, entry.StudentID)
			continue
		}

		doc.Records[idx] = model.AttendanceRecord{
			Date:      newRef.Date,
			Status:    entry.Status,
			Component: newRef.Component,
			StartTime: newRef.StartTime,
			EndTime:   newRef.EndTime,
			Remarks:   entry.Remarks,
		}

		// 移动目标若与既有记录撞键，剔除旧记录以维持文档内会话键唯一
		newKey := doc.Records[idx].SessionKey()
		for j := len(doc.Records) - 1; j >= 0; j-- {
			if j != idx && doc.Records[j].SessionKey() == newKey {
				doc.Records = append(doc.Records[:j], doc.Records[j+1:]...)
			}
		}

		if err := s.repo.Attendance.Save(ctx, doc); err != nil {
			s.logger.Error("保存考勤文档失败",
				zap.String("student_id", entry.StudentID), zap.Error(err))
			result.Skipped = append(result.Skipped, entry.StudentID)
			continue
		}
		result.Updated++
	}

	s.invalidateSummary(ctx, course.CourseID)
	return result, nil
}

// ════════════════════════════════════════════════════════════
// Delete — 批量删除会话
// ════════════════════════════════════════════════════════════
//
// 集合式操作：课程下所有学生的文档统一处理；时段/成分为空表示不限，
// 支持"删除当日全部记录（无论时段）"。返回发生变更的文档数。

func (s *attendanceService) Delete(ctx context.Context, courseID string, req *dto.DeleteAttendanceRequest) (*dto.DeleteResultResponse, error) {
	course, err := s.resolveCourse(ctx, courseID)
	if err != nil {
		return nil, err
	}

	date, err := time.Parse(dateLayout, req.Date)
	if err != nil {
		return nil, ErrAttendanceInvalidDate
	}

	startTime, endTime, err := normalizeSlot(req.StartTime, req.EndTime)
	if err != nil {
		return nil, err
	}

	if req.AcademicYear != "" && !model.IsValidAcademicYear(req.AcademicYear) {
		return nil, ErrAttendanceInvalidAcademicYear
	}

	filter := model.SessionFilter{
		Date:      date,
		StartTime: startTime,
		EndTime:   endTime,
		Component: req.Component,
	}

	modified, err := s.repo.Attendance.BulkDeleteMatching(ctx, course.CourseID, req.AcademicYear, filter)
	if err != nil {
		s.logger.Error("批量删除会话失败", zap.String("course_id", courseID), zap.Error(err))
		return nil, err
	}

	s.invalidateSummary(ctx, course.CourseID)
	return &dto.DeleteResultResponse{DocumentsModified: modified}, nil
}

// ── 内部辅助方法 ──

// resolveCourse 校验课程ID格式并加载课程描述符
func (s *attendanceService) resolveCourse(ctx context.Context, courseID string) (*model.Course, error) {
	if _, err := uuid.Parse(courseID); err != nil {
		return nil, ErrAttendanceInvalidID
	}
	course, err := s.repo.Course.GetByID(ctx, courseID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAttendanceCourseNotFound
		}
		s.logger.Error("查询课程失败", zap.String("course_id", courseID), zap.Error(err))
		return nil, err
	}
	return course, nil
}

// parseFilter 解析查询过滤参数
func (s *attendanceService) parseFilter(req *dto.AttendanceFilterRequest) (model.RecordFilter, error) {
	var f model.RecordFilter
	if req == nil {
		return f, nil
	}
	f.Component = req.Component
	if req.StartDate != "" {
		t, err := time.Parse(dateLayout, req.StartDate)
		if err != nil {
			return f, ErrAttendanceInvalidDate
		}
		f.StartDate = t
	}
	if req.EndDate != "" {
		t, err := time.Parse(dateLayout, req.EndDate)
		if err != nil {
			return f, ErrAttendanceInvalidDate
		}
		f.EndDate = t
	}
	if req.AcademicYear != "" {
		if !model.IsValidAcademicYear(req.AcademicYear) {
			return f, ErrAttendanceInvalidAcademicYear
		}
		f.AcademicYear = req.AcademicYear
	}
	return f, nil
}

// resolveAcademicYear 学年缺省回落到配置默认值并校验格式
func (s *attendanceService) resolveAcademicYear(year string) (string, error) {
	if year == "" {
		return s.defaultAcademicYear, nil
	}
	if !model.IsValidAcademicYear(year) {
		return "", ErrAttendanceInvalidAcademicYear
	}
	return year, nil
}

// knownStudents 批量查询条目中格式合法且存在的学生ID集合
// 批量查询本身失败属请求级错误，向上传播而非整批跳过
func (s *attendanceService) knownStudents(ctx context.Context, entries []dto.StudentStatusEntry) (map[string]bool, error) {
	ids := make([]string, 0, len(entries))
	for _, e := range entries {
		if _, err := uuid.Parse(e.StudentID); err == nil {
			ids = append(ids, e.StudentID)
		}
	}
	students, err := s.repo.Student.GetByIDs(ctx, ids)
	if err != nil {
		s.logger.Error("批量查询学生失败", zap.Error(err))
		return nil, err
	}
	known := make(map[string]bool, len(students))
	for i := range students {
		known[students[i].StudentID] = true
	}
	return known, nil
}

// lookupStudents 学生名录补全（仅展示用，不参与聚合逻辑）
func (s *attendanceService) lookupStudents(ctx context.Context, ids []string) map[string]*model.Student {
	result := make(map[string]*model.Student, len(ids))
	students, err := s.repo.Student.GetByIDs(ctx, ids)
	if err != nil {
		s.logger.Warn("学生名录补全失败", zap.Error(err))
		return result
	}
	for i := range students {
		result[students[i].StudentID] = &students[i]
	}
	return result
}

// invalidateSummary 变更后失效该课程的全部汇总缓存
func (s *attendanceService) invalidateSummary(ctx context.Context, courseID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.DeleteByPrefix(ctx, summaryCachePrefix+courseID+":"); err != nil {
		s.logger.Warn("汇总缓存失效失败", zap.String("course_id", courseID), zap.Error(err))
	}
}

// ── 纯聚合函数 ──

// normalizeSlot 时段字段归一化 + 格式校验（归一化的唯一入口）
func normalizeSlot(start, end string) (string, string, error) {
	start = model.NormalizeTime(start)
	end = model.NormalizeTime(end)
	if start != "" && !model.IsValidTime(start) {
		return "", "", ErrAttendanceInvalidTime
	}
	if end != "" && !model.IsValidTime(end) {
		return "", "", ErrAttendanceInvalidTime
	}
	return start, end, nil
}

// resolveComponent 成分校验：一体化课程必填，其余课程可选
func resolveComponent(course *model.Course, component string) (string, error) {
	if component == "" {
		if course.IsIntegrated() {
			return "", ErrAttendanceComponentRequired
		}
		return "", nil
	}
	if !model.IsValidComponent(component) {
		return "", ErrAttendanceInvalidComponent
	}
	return component, nil
}

// parseSessionRef 解析会话描述符（修改操作的定位/目标）
func parseSessionRef(course *model.Course, d *dto.SessionDescriptor) (model.SessionRef, error) {
	var ref model.SessionRef

	date, err := time.Parse(dateLayout, d.Date)
	if err != nil {
		return ref, ErrAttendanceInvalidDate
	}
	start, end, err := normalizeSlot(d.StartTime, d.EndTime)
	if err != nil {
		return ref, err
	}
	component, err := resolveComponent(course, d.Component)
	if err != nil {
		return ref, err
	}

	ref.Date = date
	ref.StartTime = start
	ref.EndTime = end
	ref.Component = component
	return ref, nil
}

// mergeByStudent 跨文档合并：同一学生所有文档的记录取并集
func mergeByStudent(docs []model.AttendanceDocument) map[string][]model.AttendanceRecord {
	byStudent := make(map[string][]model.AttendanceRecord)
	for i := range docs {
		if len(docs[i].Records) == 0 {
			continue
		}
		byStudent[docs[i].StudentID] = append(byStudent[docs[i].StudentID], docs[i].Records...)
	}
	return byStudent
}

// studentIDs 返回按字典序排序的学生ID列表（遍历顺序确定化）
func studentIDs(byStudent map[string][]model.AttendanceRecord) []string {
	ids := make([]string, 0, len(byStudent))
	for id := range byStudent {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// computeStats 按会话键集合统计：总课次 = 去重键数，出勤 = 含 present 记录的键数
func computeStats(records []model.AttendanceRecord, component string) dto.AttendanceStats {
	keys := make(map[string]bool)
	present := make(map[string]bool)
	for _, r := range records {
		if component != "" && r.Component != component {
			continue
		}
		key := r.SessionKey()
		keys[key] = true
		if r.Status == model.StatusPresent {
			present[key] = true
		}
	}

	stats := dto.AttendanceStats{
		TotalClasses:   len(keys),
		PresentClasses: len(present),
	}
	if stats.TotalClasses > 0 {
		stats.AttendancePercentage = round2(float64(stats.PresentClasses) / float64(stats.TotalClasses) * 100)
	}
	stats.BelowThreshold = stats.AttendancePercentage < AttendanceThreshold
	return stats
}

// round2 保留两位小数（第三位四舍五入）
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// dedupeRecords 按会话键去重（present 优先）并按 日期↑/时段↑/成分↑ 排序
func dedupeRecords(records []model.AttendanceRecord) []model.AttendanceRecord {
	byKey := make(map[string]model.AttendanceRecord, len(records))
	for _, r := range records {
		existing, ok := byKey[r.SessionKey()]
		if !ok || (existing.Status != model.StatusPresent && r.Status == model.StatusPresent) {
			byKey[r.SessionKey()] = r
		}
	}

	result := make([]model.AttendanceRecord, 0, len(byKey))
	for _, r := range byKey {
		result = append(result, r)
	}
	sort.Slice(result, func(i, j int) bool {
		di, dj := result[i].Date.Format(dateLayout), result[j].Date.Format(dateLayout)
		if di != dj {
			return di < dj
		}
		if result[i].TimeSlot() != result[j].TimeSlot() {
			return result[i].TimeSlot() < result[j].TimeSlot()
		}
		return result[i].Component < result[j].Component
	})
	return result
}

// buildStudentAttendance 组装单个学生的聚合响应
// split=true 时（一体化课程未指定成分）理论/实验独立统计
func buildStudentAttendance(studentID string, student *model.Student, records []model.AttendanceRecord, split bool) dto.StudentAttendanceResponse {
	resp := dto.StudentAttendanceResponse{
		StudentID: studentID,
		Records:   toRecordResponses(dedupeRecords(records)),
	}
	if student != nil {
		resp.RegistrationNumber = student.RegistrationNumber
		resp.Name = student.Name
		resp.Program = student.Program
	}

	if split {
		theory := computeStats(records, model.ComponentTheory)
		lab := computeStats(records, model.ComponentLab)
		resp.Theory = &theory
		resp.Lab = &lab
	} else {
		overall := computeStats(records, "")
		resp.Overall = &overall
	}
	return resp
}

// buildSummaryBlock 组装课程级汇总块
// component 非空时仅统计该成分的记录与学生
func buildSummaryBlock(byStudent map[string][]model.AttendanceRecord, component string) *dto.SummaryBlock {
	block := &dto.SummaryBlock{}
	courseKeys := make(map[string]bool)

	var percentageSum float64
	for _, records := range byStudent {
		stats := computeStats(records, component)
		if stats.TotalClasses == 0 {
			// 该成分下无记录的学生不计入该块
			continue
		}
		block.TotalStudents++
		percentageSum += stats.AttendancePercentage
		if stats.BelowThreshold {
			block.BelowThresholdCount++
		}
		for _, r := range records {
			if component != "" && r.Component != component {
				continue
			}
			courseKeys[r.SessionKey()] = true
		}
	}

	// 课程总课次是会话键集合的大小，而非各学生之和
	block.TotalClasses = len(courseKeys)
	if block.TotalStudents > 0 {
		block.AverageAttendance = round2(percentageSum / float64(block.TotalStudents))
	}
	return block
}

// buildSessions 汇总全课程会话列表：按 (日期, 时段) 分组收集成分，
// 日期新在前，同日按时段串升序
func buildSessions(byStudent map[string][]model.AttendanceRecord) []dto.SessionResponse {
	type sessionGroup struct {
		date       string
		timeSlot   string
		components map[string]bool
	}
	groups := make(map[string]*sessionGroup)

	for _, records := range byStudent {
		for _, r := range records {
			date := r.Date.Format(dateLayout)
			slot := r.TimeSlot()
			key := date + "_" + slot
			g, ok := groups[key]
			if !ok {
				g = &sessionGroup{date: date, timeSlot: slot, components: make(map[string]bool)}
				groups[key] = g
			}
			comp := r.Component
			if comp == "" {
				comp = "default"
			}
			g.components[comp] = true
		}
	}

	sessions := make([]dto.SessionResponse, 0, len(groups))
	for _, g := range groups {
		components := make([]string, 0, len(g.components))
		for c := range g.components {
			components = append(components, c)
		}
		sort.Strings(components)
		sessions = append(sessions, dto.SessionResponse{
			Date:       g.date,
			TimeSlot:   g.timeSlot,
			Components: components,
		})
	}

	sort.Slice(sessions, func(i, j int) bool {
		if sessions[i].Date != sessions[j].Date {
			return sessions[i].Date > sessions[j].Date
		}
		return sessions[i].TimeSlot < sessions[j].TimeSlot
	})
	return sessions
}

// toRecordResponses 记录模型 → 响应
func toRecordResponses(records []model.AttendanceRecord) []dto.AttendanceRecordResponse {
	result := make([]dto.AttendanceRecordResponse, 0, len(records))
	for _, r := range records {
		result = append(result, dto.AttendanceRecordResponse{
			Date:      r.Date.Format(dateLayout),
			Status:    r.Status,
			Component: r.Component,
			StartTime: r.StartTime,
			EndTime:   r.EndTime,
			Remarks:   r.Remarks,
		})
	}
	return result
}
