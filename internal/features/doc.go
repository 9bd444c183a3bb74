// Package features строит производные признаки из сырой записи студента.
//
// Engineer не знает про модель: он только дополняет map колонок
// флагами риска и составными показателями. Кодирование категорий,
// заполнение пропусков и масштабирование делает predict.Pipeline.
//
// Производные признаки:
//   - flag_low_attendance   — attendance_percentage < 75
//   - flag_low_gpa          — cumulative_gpa < 5 (шкала 10)
//   - flag_fee_pending      — fee_pending_count > 0
//   - flag_low_submission   — assignment_submission_rate < 70
//   - flag_probation        — probation_status == "Yes"
//   - total_risk_flags      — сумма флагов
//   - social_engagement     — участие в активностях и лидерство, 0..1
//   - status_attendance_present_days — attendance_percentage * working_days / 100
//
// Уже присутствующая колонка не перезаписывается.
package features
